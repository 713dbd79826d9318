package live

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
)

// ScheduleRefresh re-broadcasts on spec so idle clients see events move
// from upcoming to past without any write. The returned scheduler is
// already started.
func ScheduleRefresh(h *Hub, spec string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { h.Changed(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
