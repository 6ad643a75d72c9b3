package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/cinedex/internal/domain"
)

// Subscribable is a store that notifies listeners after state changes
type Subscribable interface {
	Subscribe(fn domain.Listener) (unsubscribe func())
}

// ChannelObserver adapts store subscriptions to a channel for Bubble Tea.
// Notifications coalesce: while one is pending, further ones are dropped.
type ChannelObserver struct {
	ch     chan StoreChangedMsg
	unsubs []func()
}

// NewChannelObserver creates a new channel-based observer
func NewChannelObserver() *ChannelObserver {
	return &ChannelObserver{ch: make(chan StoreChangedMsg, 1)}
}

// Watch subscribes to each store
func (o *ChannelObserver) Watch(stores ...Subscribable) {
	for _, s := range stores {
		o.unsubs = append(o.unsubs, s.Subscribe(o.OnChange))
	}
}

// OnChange sends a change notification (non-blocking if one is pending)
func (o *ChannelObserver) OnChange() {
	select {
	case o.ch <- StoreChangedMsg{}:
	default:
	}
}

// WaitCmd returns a command that blocks until the next change
func (o *ChannelObserver) WaitCmd() tea.Cmd {
	return func() tea.Msg {
		return <-o.ch
	}
}

// Close removes every subscription
func (o *ChannelObserver) Close() {
	for _, unsub := range o.unsubs {
		unsub()
	}
	o.unsubs = nil
}
