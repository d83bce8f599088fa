package controller

import (
	"github.com/nerrad567/devicelab-core/internal/remote"
)

// event is a remote notification queued for the loop goroutine.
type event interface {
	isEvent()
}

// targetEvent carries a new value of the shared target path.
type targetEvent struct {
	value remote.Value
}

// rebootEvent carries a new value of this node's reboot flag.
type rebootEvent struct {
	value remote.Value
}

// connectivityEvent reports a remote connectivity transition.
type connectivityEvent struct {
	connected bool
}

func (targetEvent) isEvent()       {}
func (rebootEvent) isEvent()       {}
func (connectivityEvent) isEvent() {}

// post queues ev for the loop. It blocks while the queue is full and gives
// up once the loop has stopped. Events from one source keep their order.
func (c *Controller) post(ev event) {
	select {
	case c.events <- ev:
	case <-c.stopped:
	}
}

// handle dispatches a queued remote event.
func (c *Controller) handle(ev event) {
	switch e := ev.(type) {
	case targetEvent:
		c.onTarget(e.value)
	case rebootEvent:
		if e.value.Bool() {
			c.reboot("remote reboot requested")
		}
	case connectivityEvent:
		c.onConnectivity(e.connected)
	}
}
