package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	openaisdk "github.com/openai/openai-go"

	contractx "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/contract"
	promptx "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/prompt"
	openrouterx "github.com/romulo94/poc-healthcare-appointment-chatbot/pkg/openrouter"
)

const appointmentsPlaceholder = "{appointments}"

// Gateway implements contract.Models: structured extraction through compiled
// eino graphs, free-form replies through the raw OpenRouter chat client.
type Gateway struct {
	prompts promptx.PromptSet
	timeout time.Duration

	userDataRunner compose.Runnable[[]*schema.Message, contractx.UserDataExtraction]
	intentRunner   compose.Runnable[[]*schema.Message, contractx.IntentDecision]
	confirmRunner  compose.Runnable[[]*schema.Message, contractx.ActionDecision]
	cancelRunner   compose.Runnable[[]*schema.Message, contractx.ActionDecision]

	replyClient      *openaisdk.Client
	replyModel       string
	replyTemperature float32
	replyMaxTokens   int
}

var _ contractx.Models = (*Gateway)(nil)

func NewGateway(ctx context.Context, cfg Config) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	extractCfg := cfg.OpenRouterFor(CapabilityExtract)
	extractModel, err := extractCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create extraction model: %v", contractx.ErrModelInvoke, err)
	}

	userDataRunner, err := compileExtractionGraph[contractx.UserDataExtraction](ctx, extractModel, "extract.user_data")
	if err != nil {
		return nil, err
	}
	intentRunner, err := compileExtractionGraph[contractx.IntentDecision](ctx, extractModel, "extract.intent")
	if err != nil {
		return nil, err
	}
	confirmRunner, err := compileExtractionGraph[contractx.ActionDecision](ctx, extractModel, "extract.confirmation")
	if err != nil {
		return nil, err
	}
	cancelRunner, err := compileExtractionGraph[contractx.ActionDecision](ctx, extractModel, "extract.cancellation")
	if err != nil {
		return nil, err
	}

	replyCfg := cfg.OpenRouterFor(CapabilityReply)
	replyClient := openrouterx.NewClient(replyCfg)
	if replyClient == nil {
		return nil, fmt.Errorf("%w: create reply client", contractx.ErrModelInvoke)
	}

	return &Gateway{
		prompts:          promptx.LoadPromptSet(),
		timeout:          cfg.Timeout,
		userDataRunner:   userDataRunner,
		intentRunner:     intentRunner,
		confirmRunner:    confirmRunner,
		cancelRunner:     cancelRunner,
		replyClient:      replyClient,
		replyModel:       replyCfg.Model,
		replyTemperature: replyCfg.Temperature,
		replyMaxTokens:   cfg.MaxCompletionToken,
	}, nil
}

// compileExtractionGraph builds model -> JSON parser. The instruction is
// passed as a system message at invoke time rather than through a template
// node so prompt text with literal braces needs no escaping.
func compileExtractionGraph[T any](
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	graphName string,
) (compose.Runnable[[]*schema.Message, T], error) {
	parser := schema.NewMessageJSONParser[T](&schema.MessageJSONParseConfig{
		ParseFrom: schema.MessageParseFromContent,
	})

	graph := compose.NewGraph[[]*schema.Message, T]()
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add extraction model node: %w", err)
	}
	if err := graph.AddLambdaNode("parse_json", compose.MessageParser(parser)); err != nil {
		return nil, fmt.Errorf("add extraction parser node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "model"); err != nil {
		return nil, fmt.Errorf("add extraction edge start->model: %w", err)
	}
	if err := graph.AddEdge("model", "parse_json"); err != nil {
		return nil, fmt.Errorf("add extraction edge model->parse: %w", err)
	}
	if err := graph.AddEdge("parse_json", compose.END); err != nil {
		return nil, fmt.Errorf("add extraction edge parse->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("%w: compile %s graph: %v", contractx.ErrModelInvoke, graphName, err)
	}
	return runner, nil
}

func (g *Gateway) ExtractUserData(ctx context.Context, window []contractx.Message) (contractx.UserDataExtraction, error) {
	out, err := invokeExtraction(ctx, g, g.userDataRunner, g.prompts.UserData, window)
	if err != nil {
		return contractx.UserDataExtraction{}, err
	}
	if strings.TrimSpace(out.Message) == "" {
		return contractx.UserDataExtraction{}, fmt.Errorf("%w: user data message is empty", contractx.ErrSchemaViolation)
	}
	return out, nil
}

func (g *Gateway) ExtractIntent(ctx context.Context, window []contractx.Message) (contractx.IntentDecision, error) {
	out, err := invokeExtraction(ctx, g, g.intentRunner, g.prompts.Intent, window)
	if err != nil {
		return contractx.IntentDecision{}, err
	}
	if strings.TrimSpace(out.Message) == "" {
		return contractx.IntentDecision{}, fmt.Errorf("%w: intent message is empty", contractx.ErrSchemaViolation)
	}
	switch intent := contractx.Intent(strings.ToLower(strings.TrimSpace(string(out.Intent)))); intent {
	case contractx.IntentList, contractx.IntentConfirm, contractx.IntentCancel:
		out.Intent = intent
	default:
		out.Intent = contractx.IntentEnd
	}
	return out, nil
}

func (g *Gateway) ExtractAction(
	ctx context.Context,
	window []contractx.Message,
	appointments []contractx.Appointment,
	tag contractx.SchemaTag,
) (contractx.ActionDecision, error) {
	var runner compose.Runnable[[]*schema.Message, contractx.ActionDecision]
	var template string
	switch tag {
	case contractx.SchemaConfirmation:
		runner = g.confirmRunner
		template = g.prompts.Confirmation
	case contractx.SchemaCancellation:
		runner = g.cancelRunner
		template = g.prompts.Cancellation
	default:
		return contractx.ActionDecision{}, fmt.Errorf("%w: unsupported schema tag %q", contractx.ErrValidation, tag)
	}

	instruction := strings.ReplaceAll(template, appointmentsPlaceholder, contractx.RenderAppointments(appointments))
	out, err := invokeExtraction(ctx, g, runner, instruction, window)
	if err != nil {
		return contractx.ActionDecision{}, err
	}
	if strings.TrimSpace(out.Message) == "" {
		return contractx.ActionDecision{}, fmt.Errorf("%w: action message is empty", contractx.ErrSchemaViolation)
	}
	if out.Act && out.AppointmentID == 0 {
		return contractx.ActionDecision{}, fmt.Errorf("%w: appointment_id required when act is true", contractx.ErrSchemaViolation)
	}
	return out, nil
}

// invokeExtraction marshals the conversation window into a single user
// message so role bookkeeping stays on this side of the wire.
func invokeExtraction[T any](
	ctx context.Context,
	g *Gateway,
	runner compose.Runnable[[]*schema.Message, T],
	instruction string,
	window []contractx.Message,
) (T, error) {
	var zero T

	payload, err := json.Marshal(map[string]any{"conversation": window})
	if err != nil {
		return zero, fmt.Errorf("%w: marshal conversation window: %v", contractx.ErrValidation, err)
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	out, err := runner.Invoke(ctx, []*schema.Message{
		schema.SystemMessage(instruction),
		schema.UserMessage(string(payload)),
	})
	if err != nil {
		return zero, fmt.Errorf("%w: extraction invoke: %v", contractx.ErrModelInvoke, err)
	}
	return out, nil
}

func (g *Gateway) GenerateReply(ctx context.Context, instruction string, window []contractx.Message) (string, error) {
	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(window)+1)
	messages = append(messages, openaisdk.SystemMessage(instruction))
	for _, m := range window {
		switch m.Role {
		case contractx.RoleAssistant:
			messages = append(messages, openaisdk.AssistantMessage(m.Content))
		case contractx.RoleTool:
			messages = append(messages, openaisdk.UserMessage(fmt.Sprintf("[%s result]\n%s", m.ToolName, m.Content)))
		default:
			messages = append(messages, openaisdk.UserMessage(m.Content))
		}
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	resp, err := g.replyClient.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model:               openaisdk.ChatModel(g.replyModel),
		Messages:            messages,
		Temperature:         openaisdk.Float(float64(g.replyTemperature)),
		MaxCompletionTokens: openaisdk.Int(int64(g.replyMaxTokens)),
	})
	if err != nil {
		return "", fmt.Errorf("%w: reply invoke: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: reply has no choices", contractx.ErrSchemaViolation)
	}
	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", fmt.Errorf("%w: reply content is empty", contractx.ErrSchemaViolation)
	}
	return reply, nil
}

func (g *Gateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.timeout)
}
