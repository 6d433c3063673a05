package rews

// handlerSet holds the user-supplied callbacks. One set is shared by the
// core and by every adapter generation it installs, so callback identity
// and any state captured by the callbacks survive reconnects. Callbacks
// are invoked repeatedly over the client's lifetime, never one-shot, and
// always without the core lock held.
type handlerSet struct {
	onOpen    func()
	onMessage func(Message)
	onError   func(error)
	onClose   func(CloseEvent)
}

func (h *handlerSet) emitOpen() {
	if h.onOpen != nil {
		h.onOpen()
	}
}

func (h *handlerSet) emitMessage(msg Message) {
	if h.onMessage != nil {
		h.onMessage(msg)
	}
}

func (h *handlerSet) emitError(err error) {
	if h.onError != nil {
		h.onError(err)
	}
}

func (h *handlerSet) emitClose(ev CloseEvent) {
	if h.onClose != nil {
		h.onClose(ev)
	}
}
