package client

import (
	"context"

	"github.com/example/ocpi-client/internal/correlation"
	"github.com/example/ocpi-client/internal/ocpi"
	"github.com/example/ocpi-client/internal/ocpi/model"
	"github.com/example/ocpi-client/internal/outcome"
)

var commandResultOp = callbackOp[model.CommandResult]("commands.post.result", commandsSender)

// PostCommandResult reports the outcome of an eMSP command to its response_url.
func (c *Client) PostCommandResult(ctx context.Context, responseURL string, result model.CommandResult, opts ...correlation.Option) outcome.Envelope[ocpi.NoContent] {
	return execute(ctx, c, commandResultOp, "", callback[model.CommandResult]{URL: responseURL, Result: result}, opts...)
}
