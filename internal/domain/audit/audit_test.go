package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"hospicore/internal/core/id"
)

type failingLogger struct {
	calls int
}

func (f *failingLogger) LogAction(ctx context.Context, entry Entry) error {
	f.calls++
	return errors.New("audit store down")
}

func TestRecordSwallowsLoggerFailure(t *testing.T) {
	l := &failingLogger{}

	assert.NotPanics(t, func() {
		Record(context.Background(), l, Entry{
			ActorID:    "system",
			Action:     ActionCreate,
			EntityType: "product",
			EntityID:   id.New(),
		})
	})
	assert.Equal(t, 1, l.calls)
}

func TestRecordNilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		Record(context.Background(), nil, Entry{Action: ActionUpdate})
	})
}
