package ladder

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/c1do1/whatsapp-support/agent/contract"
)

// handoffToolName is the fixed capability a tier calls to escalate.
// The tool call itself is the handoff signal; it is never executed.
const handoffToolName = "derivar_especialista"

type registryImpl struct {
	frontline contractx.TierAgent
	knowledge contractx.TierAgent
}

func (r *registryImpl) Frontline() contractx.TierAgent { return r.frontline }
func (r *registryImpl) Knowledge() contractx.TierAgent { return r.knowledge }

// NewRegistry wires the model-backed tiers over one chat model and the
// semantic store.
func NewRegistry(
	ctx context.Context,
	chatModel einomodel.ToolCallingChatModel,
	store contractx.SemanticStore,
	cfg Config,
) (contractx.Registry, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: semantic store is required", contractx.ErrValidation)
	}

	frontline, err := newFrontlineAgent(ctx, chatModel)
	if err != nil {
		return nil, err
	}
	knowledge, err := newKnowledgeAgent(ctx, chatModel, store, cfg.MinSnippetScore)
	if err != nil {
		return nil, err
	}

	return &registryImpl{frontline: frontline, knowledge: knowledge}, nil
}

/* ------------------------------ frontline ------------------------------ */

type frontlineAgent struct {
	runner compose.Runnable[map[string]any, *schema.Message]
}

func newFrontlineAgent(
	ctx context.Context,
	chatModel einomodel.ToolCallingChatModel,
) (*frontlineAgent, error) {
	toolModel, err := chatModel.WithTools([]*schema.ToolInfo{handoffTool()})
	if err != nil {
		return nil, fmt.Errorf("%w: bind handoff tool: %v", contractx.ErrModelInvoke, err)
	}

	runner, err := compileChatGraph(ctx, toolModel, frontlinePrompt, "ladder.frontline_graph")
	if err != nil {
		return nil, err
	}
	return &frontlineAgent{runner: runner}, nil
}

func (a *frontlineAgent) Respond(ctx context.Context, req contractx.TierRequest) (contractx.TierResponse, error) {
	msg, err := a.runner.Invoke(ctx, map[string]any{"input": req.Input})
	if err != nil {
		return contractx.TierResponse{}, fmt.Errorf("%w: frontline invoke: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return contractx.TierResponse{}, fmt.Errorf("%w: empty frontline response", contractx.ErrSchemaViolation)
	}

	for _, call := range msg.ToolCalls {
		if call.Function.Name == handoffToolName {
			return contractx.TierResponse{Handoff: true}, nil
		}
	}

	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return contractx.TierResponse{}, fmt.Errorf("%w: frontline message is empty", contractx.ErrSchemaViolation)
	}
	return contractx.TierResponse{Message: content}, nil
}

func handoffTool() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: handoffToolName,
		Desc: "Deriva la consulta actual al siguiente nivel de especialistas de C1DO1.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"motivo": {Type: schema.String, Desc: "Motivo breve de la derivación", Required: false},
		}),
	}
}

/* ------------------------------ knowledge ------------------------------ */

type knowledgeAgent struct {
	runner   compose.Runnable[map[string]any, knowledgeLLMOutput]
	store    contractx.SemanticStore
	minScore float64
}

type knowledgeLLMOutput struct {
	Message string `json:"message"`
	Found   bool   `json:"found"`
}

func newKnowledgeAgent(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	store contractx.SemanticStore,
	minScore float64,
) (*knowledgeAgent, error) {
	runner, err := compileStructuredGraph[knowledgeLLMOutput](ctx, chatModel, knowledgePrompt, "ladder.knowledge_graph")
	if err != nil {
		return nil, err
	}
	return &knowledgeAgent{runner: runner, store: store, minScore: minScore}, nil
}

// Respond searches before anything else; answering without a search is
// not a path that exists. The acceptance policy is deliberately biased
// toward escalation: off-topic snippets and empty model answers both
// hand off.
func (a *knowledgeAgent) Respond(ctx context.Context, req contractx.TierRequest) (contractx.TierResponse, error) {
	query := strings.TrimSpace(req.RawQuery)
	if query == "" {
		return contractx.TierResponse{}, fmt.Errorf("%w: knowledge query is empty", contractx.ErrValidation)
	}

	snippets, err := a.store.Search(ctx, query)
	if err != nil {
		return contractx.TierResponse{}, fmt.Errorf("knowledge search: %w", err)
	}

	usable := snippets[:0:0]
	for _, sn := range snippets {
		if sn.Score >= a.minScore {
			usable = append(usable, sn)
		}
	}
	if len(usable) == 0 {
		return contractx.TierResponse{Handoff: true, Query: query, Snippets: snippets}, nil
	}

	payload := map[string]any{
		"input":    req.Input,
		"query":    query,
		"snippets": usable,
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return contractx.TierResponse{}, fmt.Errorf("%w: marshal knowledge payload: %v", contractx.ErrValidation, err)
	}

	out, err := a.runner.Invoke(ctx, map[string]any{"input": string(input)})
	if err != nil {
		return contractx.TierResponse{}, fmt.Errorf("%w: knowledge invoke: %v", contractx.ErrModelInvoke, err)
	}

	message := strings.TrimSpace(out.Message)
	if !out.Found || message == "" {
		return contractx.TierResponse{Handoff: true, Query: query, Snippets: usable}, nil
	}
	return contractx.TierResponse{Message: message, Query: query, Snippets: usable}, nil
}

/* ----------------------------- graph helpers ---------------------------- */

func compileChatGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	graphName string,
) (compose.Runnable[map[string]any, *schema.Message], error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage("{input}"),
	)

	graph := compose.NewGraph[map[string]any, *schema.Message]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add chat prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add chat model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add chat edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add chat edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add chat edge model->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile chat graph %s: %w", graphName, err)
	}
	return runner, nil
}

func compileStructuredGraph[T any](
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	graphName string,
) (compose.Runnable[map[string]any, T], error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage("{input}"),
	)

	parser := schema.NewMessageJSONParser[T](&schema.MessageJSONParseConfig{
		ParseFrom: schema.MessageParseFromContent,
	})

	graph := compose.NewGraph[map[string]any, T]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add structured prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add structured model node: %w", err)
	}
	if err := graph.AddLambdaNode("parse_json", compose.MessageParser(parser)); err != nil {
		return nil, fmt.Errorf("add structured parser node: %w", err)
	}

	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add structured edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add structured edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", "parse_json"); err != nil {
		return nil, fmt.Errorf("add structured edge model->parse: %w", err)
	}
	if err := graph.AddEdge("parse_json", compose.END); err != nil {
		return nil, fmt.Errorf("add structured edge parse->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile structured graph %s: %w", graphName, err)
	}
	return runner, nil
}
