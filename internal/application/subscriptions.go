package application

import (
	"fmt"

	"github.com/bnema/online-session-kit/internal/domain"
	"github.com/bnema/online-session-kit/internal/ports"
)

// subscriptionSet owns a manager's notification registrations. close removes
// them in reverse order and is safe to call repeatedly.
type subscriptionSet struct {
	removers []func()
}

func (s *subscriptionSet) add(name string, id ports.NotificationID, remove func(ports.NotificationID)) error {
	if id == ports.InvalidNotificationID {
		return fmt.Errorf("register %s notification: %w", name, domain.ErrOperationFailed)
	}
	s.removers = append(s.removers, func() { remove(id) })
	return nil
}

func (s *subscriptionSet) len() int {
	return len(s.removers)
}

func (s *subscriptionSet) close() {
	for i := len(s.removers) - 1; i >= 0; i-- {
		s.removers[i]()
	}
	s.removers = nil
}

// registerAll runs each registration against a fresh set. If any fails, the
// registrations that succeeded are removed before the error is returned.
func registerAll(steps ...func(*subscriptionSet) error) (*subscriptionSet, error) {
	subs := &subscriptionSet{}
	committed := false
	defer func() {
		if !committed {
			subs.close()
		}
	}()

	for _, step := range steps {
		if err := step(subs); err != nil {
			return nil, err
		}
	}

	committed = true
	return subs, nil
}
