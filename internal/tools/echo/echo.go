// Package echo is a minimal local tool used to exercise the dispatch
// path end to end: it has one action, "say", that echoes its "text"
// parameter back verbatim.
package echo

import (
	"context"

	"github.com/toolfabric/registry/pkg/envelope"
	"github.com/toolfabric/registry/pkg/tool"
)

// Tool implements tool.Tool.
type Tool struct {
	version string
}

// New constructs the echo tool at the given version.
func New(version string) *Tool {
	return &Tool{version: version}
}

func (t *Tool) Name() string           { return "echo" }
func (t *Tool) Version() string        { return t.version }
func (t *Tool) Description() string    { return "echoes its text parameter back" }
func (t *Tool) Category() string       { return "general" }
func (t *Tool) Capabilities() []string { return []string{"echo"} }

func (t *Tool) Actions() []tool.ActionDescriptor {
	return []tool.ActionDescriptor{
		tool.NewAction("say", "echo the text parameter").Require("text").Build(),
	}
}

func (t *Tool) Execute(_ context.Context, action string, params *tool.Params, _ tool.Context) *envelope.Envelope {
	switch action {
	case "say":
		text, err := params.String("text")
		if err != nil {
			return envelope.AsValidation("missing required parameter: text")
		}
		return envelope.Ok(map[string]string{"text": text})
	default:
		return envelope.AsNotFound("unknown action: " + action)
	}
}
