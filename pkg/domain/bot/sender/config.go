package sender

import (
	"strconv"
	"strings"

	"github.com/napryag/tg_physio_bot/pkg/utils/errs"
)

// ProcessorConfig names the reception channel that receives booking notices.
type ProcessorConfig struct {
	ChannelID string
	// RatePerSecond caps outbound sends; zero disables pacing.
	RatePerSecond float64
	Attempts      int
}

// Enabled reports whether a channel is configured.
func (c ProcessorConfig) Enabled() bool {
	return strings.TrimSpace(c.ChannelID) != ""
}

// target returns either a numeric chat id or an @username.
func (c ProcessorConfig) target() (int64, string, error) {
	id := strings.TrimSpace(c.ChannelID)
	if id == "" {
		return 0, "", errs.New("empty channel id")
	}
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n, "", nil
	}
	if !strings.HasPrefix(id, "@") {
		id = "@" + id
	}
	return 0, id, nil
}
