package paymentservice

import (
	"sync"

	"github.com/marketpi/wps/internal/domain"
	"github.com/marketpi/wps/internal/domain/interfaces"
)

// observableState is the loading/error pair the UI consumes. Approval
// and best-effort failures land here instead of settling the session.
type observableState struct {
	userUID  string
	notifier interfaces.StatusNotifier

	mu      sync.Mutex
	loading bool
	errMsg  string
}

func newObservableState(userUID string, notifier interfaces.StatusNotifier) *observableState {
	return &observableState{
		userUID:  userUID,
		notifier: notifier,
	}
}

func (o *observableState) setLoading(loading bool) {
	o.mu.Lock()
	o.loading = loading
	if loading {
		o.errMsg = ""
	}
	state := o.snapshotLocked()
	o.mu.Unlock()

	o.publish(state)
}

func (o *observableState) setError(msg string) {
	o.mu.Lock()
	o.errMsg = msg
	state := o.snapshotLocked()
	o.mu.Unlock()

	o.publish(state)
}

// clear resets both loading and error; used by the cancel callback,
// which must clear synchronously before any settlement work runs.
func (o *observableState) clear() {
	o.mu.Lock()
	o.loading = false
	o.errMsg = ""
	state := o.snapshotLocked()
	o.mu.Unlock()

	o.publish(state)
}

func (o *observableState) snapshot() domain.PaymentState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *observableState) snapshotLocked() domain.PaymentState {
	return domain.PaymentState{
		Loading: o.loading,
		Error:   o.errMsg,
	}
}

func (o *observableState) publish(state domain.PaymentState) {
	if o.notifier != nil {
		o.notifier.PublishState(o.userUID, state)
	}
}
