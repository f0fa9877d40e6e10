package gimp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ironsheep/gimp-mcp/internal/protocol"
)

// Exchanger sends one command to GIMP and returns its reply.
// *bridge.Bridge satisfies it.
type Exchanger interface {
	Exchange(ctx context.Context, cmd protocol.Command) (*protocol.Result, error)
}

// Client issues GIMP API calls through an Exchanger.
type Client struct {
	ex  Exchanger
	log *slog.Logger
}

// NewClient returns a Client using ex. A nil logger uses slog.Default().
func NewClient(ex Exchanger, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{ex: ex, log: logger.With("component", "gimp")}
}

var errEmptyPath = errors.New("api_path must not be empty")

// CallAPI calls the GIMP API method at path (for example
// "Gimp.Image.get_by_id") with positional args and keyword kwargs. It makes
// exactly one exchange and never panics or returns a bare error: failures of
// any kind, including error replies from GIMP, come back as a failed Outcome.
// The path is not validated beyond being non-empty; GIMP decides what exists.
func (c *Client) CallAPI(ctx context.Context, path string, args []any, kwargs map[string]any) Outcome {
	if path == "" {
		return Failed(errEmptyPath)
	}
	call := protocol.APICall{Path: path, Args: args, Kwargs: kwargs}
	res, err := c.ex.Exchange(ctx, call.Command())
	if err != nil {
		return Failed(err)
	}
	if !res.Success() {
		c.log.Debug("api call failed", "api_path", path, "status", res.Status)
		return Failed(remoteError(res.Error))
	}
	return FromJSON(res.Result)
}
