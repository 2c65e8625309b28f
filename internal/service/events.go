package service

import "freelance-market/internal/event"

func publish(bus event.Bus, e event.Event) {
	if bus != nil {
		bus.Publish(e)
	}
}
