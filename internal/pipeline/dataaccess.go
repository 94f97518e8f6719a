package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rkalmar/mandate/internal/model"
	"github.com/rkalmar/mandate/internal/policy"
)

// extensionRe matches a trailing 2–6 character lowercase-letter file
// extension on the final path segment.
var extensionRe = regexp.MustCompile(`\.([a-z]{2,6})$`)

// writeArgWords flag write intent in tool-call arguments.
var writeArgWords = []string{"save", "create", "delete", "update", "append", "overwrite"}

// writeToolWords flag write intent in tool identifiers.
var writeToolWords = []string{"write", "save", "create", "delete", "upload", "send"}

// dataAccessStage checks file extensions and read/write permissions on
// tool-call arguments. All of its rejections are retryable: the
// generator can usually propose a compliant call instead.
type dataAccessStage struct {
	allowedExts map[string]bool
	anyWrite    bool
}

func newDataAccessStage(p *policy.Policy) *dataAccessStage {
	return &dataAccessStage{
		allowedExts: p.FileTypeUnion(),
		anyWrite:    p.AllowsAnyWrite(),
	}
}

func (s *dataAccessStage) Name() string { return "data_access" }

func (s *dataAccessStage) OnStep(t *Turn, calls []model.ToolCall) Result {
	for _, call := range calls {
		for _, value := range model.StringValues(call.Args) {
			ext, ok := fileExtension(value)
			if !ok {
				continue
			}
			if !s.allowedExts[ext] {
				return Abort(fmt.Sprintf(
					"tool call %q references a .%s file, which is not an allowed file type", call.Name, ext), true)
			}
		}

		if !s.anyWrite && s.looksLikeWrite(call) {
			return Abort(fmt.Sprintf(
				"tool call %q appears to write data, but the policy grants no write permission", call.Name), true)
		}
	}
	return Continue(t.Messages)
}

// looksLikeWrite flags calls whose name or arguments use write vocabulary.
func (s *dataAccessStage) looksLikeWrite(call model.ToolCall) bool {
	name := strings.ToLower(call.Name)
	for _, w := range writeToolWords {
		if strings.Contains(name, w) {
			return true
		}
	}
	args := strings.ToLower(call.ArgsJSON())
	for _, w := range writeArgWords {
		if strings.Contains(args, w) {
			return true
		}
	}
	return false
}

// fileExtension returns the extension of a value that looks like a
// filename: its final path segment ends in a 2–6 letter extension.
func fileExtension(value string) (string, bool) {
	seg := value
	if i := strings.LastIndexAny(seg, `/\`); i >= 0 {
		seg = seg[i+1:]
	}
	m := extensionRe.FindStringSubmatch(seg)
	if m == nil {
		return "", false
	}
	return m[1], true
}
