// Package ladder runs inbound messages through the tiered escalation
// chain: frontline -> knowledge -> human placeholder. Which agent ends
// the run is the authoritative escalation signal; the reply text never
// is (see fallback.go for the legacy exception).
package ladder

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/c1do1/whatsapp-support/agent/contract"
	historyx "github.com/c1do1/whatsapp-support/agent/history"
)

type Config struct {
	// EnableTextFallback turns on keyword escalation detection for
	// model adapters without structural handoff data. Known-fragile;
	// off by default.
	EnableTextFallback bool `envconfig:"ENABLE_TEXT_FALLBACK" split_words:"true" default:"false"`
	// MinSnippetScore is the relevance floor under which a search hit
	// does not count as evidence.
	MinSnippetScore float64 `envconfig:"MIN_SNIPPET_SCORE" split_words:"true" default:"0.5"`
}

type ladderInput struct {
	Text    string
	History []contractx.Turn
}

type ladderState struct {
	Text    string
	History []contractx.Turn

	FinalAgent contractx.AgentName
	Reply      string
	Trace      []contractx.TraceEvent
}

// Ladder is the compiled escalation chain.
type Ladder struct {
	registry contractx.Registry
	cfg      Config

	graphRunner compose.Runnable[ladderInput, contractx.LadderResult]
}

var _ contractx.Ladder = (*Ladder)(nil)

func New(registry contractx.Registry, cfg Config) (*Ladder, error) {
	if registry == nil {
		return nil, fmt.Errorf("%w: tier registry is required", contractx.ErrValidation)
	}

	l := &Ladder{registry: registry, cfg: cfg}
	runner, err := l.compileGraph(context.Background())
	if err != nil {
		return nil, err
	}
	l.graphRunner = runner
	return l, nil
}

func (l *Ladder) Run(ctx context.Context, text string, history []contractx.Turn) (contractx.LadderResult, error) {
	return l.graphRunner.Invoke(ctx, ladderInput{Text: text, History: history})
}

func (l *Ladder) compileGraph(ctx context.Context) (compose.Runnable[ladderInput, contractx.LadderResult], error) {
	graph := compose.NewGraph[ladderInput, contractx.LadderResult]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in ladderInput) (*ladderState, error) {
			if strings.TrimSpace(in.Text) == "" {
				return nil, fmt.Errorf("%w: message text is empty", contractx.ErrValidation)
			}
			return &ladderState{Text: in.Text, History: in.History}, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("run_frontline",
		compose.InvokableLambda(func(ctx context.Context, in *ladderState) (*ladderState, error) {
			return l.runFrontline(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node run_frontline: %w", err)
	}

	if err := graph.AddLambdaNode("run_knowledge",
		compose.InvokableLambda(func(ctx context.Context, in *ladderState) (*ladderState, error) {
			return l.runKnowledge(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node run_knowledge: %w", err)
	}

	if err := graph.AddLambdaNode("finalize",
		compose.InvokableLambda(func(ctx context.Context, in *ladderState) (contractx.LadderResult, error) {
			if in == nil {
				return contractx.LadderResult{}, fmt.Errorf("%w: ladder state is nil", contractx.ErrValidation)
			}
			return contractx.LadderResult{
				Reply:      in.Reply,
				FinalAgent: in.FinalAgent,
				Trace:      in.Trace,
			}, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize: %w", err)
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, in *ladderState) (string, error) {
			if in == nil {
				return "", fmt.Errorf("%w: ladder state is nil", contractx.ErrValidation)
			}
			if in.FinalAgent == contractx.AgentFrontline {
				return "finalize", nil
			}
			return "run_knowledge", nil
		},
		map[string]bool{
			"run_knowledge": true,
			"finalize":      true,
		},
	)

	if err := graph.AddEdge(compose.START, "validate_request"); err != nil {
		return nil, fmt.Errorf("add edge start->validate: %w", err)
	}
	if err := graph.AddEdge("validate_request", "run_frontline"); err != nil {
		return nil, fmt.Errorf("add edge validate->frontline: %w", err)
	}
	if err := graph.AddBranch("run_frontline", branch); err != nil {
		return nil, fmt.Errorf("add frontline branch: %w", err)
	}
	if err := graph.AddEdge("run_knowledge", "finalize"); err != nil {
		return nil, fmt.Errorf("add edge knowledge->finalize: %w", err)
	}
	if err := graph.AddEdge("finalize", compose.END); err != nil {
		return nil, fmt.Errorf("add edge finalize->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("ladder.escalation_chain"))
	if err != nil {
		return nil, fmt.Errorf("compile ladder graph: %w", err)
	}
	return runner, nil
}

func (l *Ladder) runFrontline(ctx context.Context, in *ladderState) (*ladderState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: ladder state is nil", contractx.ErrValidation)
	}

	resp, err := l.registry.Frontline().Respond(ctx, contractx.TierRequest{
		Input:    historyx.ComposeContext(in.History, in.Text, historyx.FrontlineWindow),
		RawQuery: in.Text,
	})
	if err != nil {
		return nil, err
	}

	if !resp.Handoff && l.cfg.EnableTextFallback && textSignalsEscalation(string(contractx.AgentFrontline), resp.Message) {
		resp.Handoff = true
	}

	if resp.Handoff {
		in.FinalAgent = contractx.AgentKnowledge
		in.Trace = append(in.Trace, contractx.TraceEvent{
			Kind: contractx.TraceHandoff,
			From: contractx.AgentFrontline,
			To:   contractx.AgentKnowledge,
		})
		return in, nil
	}

	in.FinalAgent = contractx.AgentFrontline
	in.Reply = resp.Message
	return in, nil
}

func (l *Ladder) runKnowledge(ctx context.Context, in *ladderState) (*ladderState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: ladder state is nil", contractx.ErrValidation)
	}

	resp, err := l.registry.Knowledge().Respond(ctx, contractx.TierRequest{
		Input:    historyx.ComposeContext(in.History, in.Text, historyx.KnowledgeWindow),
		RawQuery: in.Text,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Snippets) > 0 || resp.Query != "" {
		in.Trace = append(in.Trace, contractx.TraceEvent{
			Kind:     contractx.TraceSearch,
			From:     contractx.AgentKnowledge,
			Query:    resp.Query,
			Snippets: resp.Snippets,
		})
	}

	if !resp.Handoff && l.cfg.EnableTextFallback && textSignalsEscalation(string(contractx.AgentKnowledge), resp.Message) {
		resp.Handoff = true
	}

	if resp.Handoff {
		in.FinalAgent = contractx.AgentHuman
		in.Reply = ""
		in.Trace = append(in.Trace, contractx.TraceEvent{
			Kind: contractx.TraceHandoff,
			From: contractx.AgentKnowledge,
			To:   contractx.AgentHuman,
		})
		return in, nil
	}

	in.FinalAgent = contractx.AgentKnowledge
	in.Reply = resp.Message
	return in, nil
}
