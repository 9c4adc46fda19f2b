// Package diagnostics holds the display preferences for server-published
// diagnostics. The daemon does not render anything itself; editors consume
// the preferences and the collapsed per-line form produced here.
package diagnostics

import (
	"fmt"
	"sort"

	"github.com/lspherd/lspherd/src/herd/internal/errors"
	tally "github.com/uber-go/tally"
	"go.lsp.dev/protocol"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	_nameKey   = "diagnostics"
	_configKey = "diagnostics"
)

// Severity names as they appear in configuration.
const (
	SeverityError = "error"
	SeverityWarn  = "warn"
	SeverityInfo  = "info"
	SeverityHint  = "hint"
)

var _severityNames = map[protocol.DiagnosticSeverity]string{
	protocol.DiagnosticSeverityError:       SeverityError,
	protocol.DiagnosticSeverityWarning:     SeverityWarn,
	protocol.DiagnosticSeverityInformation: SeverityInfo,
	protocol.DiagnosticSeverityHint:        SeverityHint,
}

// Preferences is the pass-through rendering configuration.
type Preferences struct {
	// SeverityOrder lists severity names from most to least prominent.
	SeverityOrder []string `yaml:"severityOrder"`
	// BorderStyle for floating detail windows.
	BorderStyle string `yaml:"borderStyle"`
	// Signs maps severity names to gutter sign glyphs.
	Signs map[string]string `yaml:"signs"`
	// CollapseDuplicates folds repeated messages on one line into a single entry.
	CollapseDuplicates bool `yaml:"collapseDuplicates"`
}

// Rendered is one collapsed inline entry for a line.
type Rendered struct {
	Severity protocol.DiagnosticSeverity
	Sign     string
	Message  string
}

// Controller exposes diagnostic display preferences and the inline collapse rule.
type Controller interface {
	Preferences() Preferences
	// RenderLine produces the inline entries for diagnostics sharing one line:
	// ordered by the configured severity order, and, when collapsing is on,
	// with duplicate messages across severities folded into the most prominent
	// occurrence.
	RenderLine(diags []protocol.Diagnostic) []Rendered
}

// Params are inbound parameters to construct the controller.
type Params struct {
	fx.In

	Logger *zap.SugaredLogger
	Stats  tally.Scope
	Config config.Provider
}

type controller struct {
	logger *zap.SugaredLogger
	stats  tally.Scope
	prefs  Preferences
	rank   map[string]int
}

// New creates a new diagnostics controller.
func New(p Params) (Controller, error) {
	c := &controller{
		logger: p.Logger.With("component", _nameKey),
		stats:  p.Stats.SubScope(_nameKey),
	}

	if err := p.Config.Get(_configKey).Populate(&c.prefs); err != nil {
		return nil, fmt.Errorf("getting config field %q: %w", _configKey, err)
	}
	if len(c.prefs.SeverityOrder) == 0 {
		c.prefs.SeverityOrder = []string{SeverityError, SeverityWarn, SeverityInfo, SeverityHint}
	}

	c.rank = make(map[string]int, len(c.prefs.SeverityOrder))
	for i, name := range c.prefs.SeverityOrder {
		if _, ok := c.rank[name]; ok {
			return nil, errors.New("duplicate severity in severityOrder")
		}
		c.rank[name] = i
	}

	return c, nil
}

func (c *controller) Preferences() Preferences {
	return c.prefs
}

func (c *controller) RenderLine(diags []protocol.Diagnostic) []Rendered {
	ordered := make([]protocol.Diagnostic, len(diags))
	copy(ordered, diags)
	sort.SliceStable(ordered, func(i, j int) bool {
		return c.severityRank(ordered[i].Severity) < c.severityRank(ordered[j].Severity)
	})

	out := make([]Rendered, 0, len(ordered))
	seen := make(map[string]struct{}, len(ordered))
	for _, d := range ordered {
		if c.prefs.CollapseDuplicates {
			if _, ok := seen[d.Message]; ok {
				continue
			}
			seen[d.Message] = struct{}{}
		}
		out = append(out, Rendered{
			Severity: d.Severity,
			Sign:     c.prefs.Signs[_severityNames[d.Severity]],
			Message:  d.Message,
		})
	}

	c.stats.Counter("lines_rendered").Inc(1)
	return out
}

// severityRank maps a wire severity onto the configured ordering. Unknown
// severities sort last.
func (c *controller) severityRank(s protocol.DiagnosticSeverity) int {
	name, ok := _severityNames[s]
	if !ok {
		return len(c.rank)
	}
	rank, ok := c.rank[name]
	if !ok {
		return len(c.rank)
	}
	return rank
}
