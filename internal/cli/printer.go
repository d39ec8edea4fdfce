package cli

import (
	"fmt"
	"io"

	"github.com/leofalp/stageflow/core/orchestrator"
	"github.com/leofalp/stageflow/core/plan"
	"github.com/leofalp/stageflow/patterns/staged"
)

func (a *App) newOrchestrator(listener staged.Listener) *orchestrator.Orchestrator {
	return orchestrator.New(a.NewProvider(a.cfg),
		orchestrator.WithAgentBounds(a.cfg.MinAgents, a.cfg.MaxAgents),
		orchestrator.WithSummary(a.cfg.Summarize),
		orchestrator.WithModel(a.cfg.Model),
		orchestrator.WithListener(listener),
		orchestrator.WithObserver(a.observer),
		orchestrator.WithEngineOptions(
			staged.WithContextLimit(a.cfg.ContextLimit),
			staged.WithMaxConcurrency(a.cfg.MaxConcurrency),
			staged.WithAgentTimeout(a.cfg.AgentTimeout),
		),
	)
}

// streamPrinter renders run events as plain text. Agents of one stage
// stream concurrently, so a header is printed whenever the speaking agent
// changes.
type streamPrinter struct {
	w       io.Writer
	speaker string
	quiet   bool
}

func (p *streamPrinter) listen(event staged.Event) {
	if p.quiet {
		return
	}
	switch event.Type {
	case staged.EventPhaseStart:
		p.speaker = ""
		label := "Stage " + plan.FormatPhase(event.Phase)
		if event.PhaseLabel != "" && event.PhaseLabel != label {
			label += " · " + event.PhaseLabel
		}
		fmt.Fprintf(p.w, "\n== %s ==\n", label)

	case staged.EventAgentFragment:
		if p.speaker != event.OutputID {
			p.speaker = event.OutputID
			fmt.Fprintf(p.w, "\n[%s] ", event.AgentName)
		}
		fmt.Fprint(p.w, event.Fragment)

	case staged.EventAgentError:
		p.speaker = ""
		fmt.Fprintf(p.w, "\n[%s] failed: %v\n", event.AgentName, event.Err)

	case staged.EventPhaseDone:
		fmt.Fprintln(p.w)

	case staged.EventSummaryFragment:
		if p.speaker != "summary" {
			p.speaker = "summary"
			fmt.Fprint(p.w, "\n== Summary ==\n")
		}
		fmt.Fprint(p.w, event.Fragment)

	case staged.EventSummaryDone:
		if event.Err != nil {
			fmt.Fprintf(p.w, "\nsummary failed: %v\n", event.Err)
			return
		}
		fmt.Fprintln(p.w)
	}
}
