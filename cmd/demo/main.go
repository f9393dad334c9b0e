// Command demo walks through the gateway surface using the official OpenAI
// Go client, proving wire compatibility end to end: model listing, a plain
// completion, a streamed completion, and an emulated tool-call round trip.
//
// Point it at a running gateway (see cmd/argonaut and cmd/mock-argo):
//
//	ARGONAUT_URL - gateway base URL (default: http://localhost:44497/v1)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const demoModel = "argo:gpt-4o"

// weatherArgs is the argument struct for the demo tool; its JSON schema is
// reflected rather than hand-written.
type weatherArgs struct {
	Location string `json:"location" jsonschema:"title=Location,description=City and state"`
	Unit     string `json:"unit,omitempty" jsonschema:"enum=celsius,enum=fahrenheit"`
}

func main() {
	baseURL := os.Getenv("ARGONAUT_URL")
	if baseURL == "" {
		baseURL = "http://localhost:44497/v1"
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey("unused"), // the gateway does not authenticate callers
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	fmt.Println("=== argonaut gateway demo ===")
	fmt.Println("gateway:", baseURL)

	if err := listModels(ctx, client); err != nil {
		fail(err)
	}
	if err := plainChat(ctx, client); err != nil {
		fail(err)
	}
	if err := streamedChat(ctx, client); err != nil {
		fail(err)
	}
	if err := toolChat(ctx, client); err != nil {
		fail(err)
	}

	fmt.Println("\n=== demo complete ===")
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "demo failed:", err)
	os.Exit(1)
}

func listModels(ctx context.Context, client openai.Client) error {
	fmt.Println("\n[1] GET /v1/models")
	page, err := client.Models.List(ctx)
	if err != nil {
		return err
	}
	for i, m := range page.Data {
		if i >= 5 {
			fmt.Printf("    ... and %d more\n", len(page.Data)-i)
			break
		}
		fmt.Printf("    %s\n", m.ID)
	}
	return nil
}

func plainChat(ctx context.Context, client openai.Client) error {
	fmt.Println("\n[2] non-streaming chat completion")
	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(demoModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("Write a haiku about a gateway."),
		},
	})
	if err != nil {
		return err
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("empty response")
	}
	fmt.Printf("    finish_reason: %s\n", resp.Choices[0].FinishReason)
	fmt.Printf("    content: %q\n", resp.Choices[0].Message.Content)
	fmt.Printf("    usage: %d prompt / %d completion tokens\n",
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return nil
}

func streamedChat(ctx context.Context, client openai.Client) error {
	fmt.Println("\n[3] streaming chat completion")
	stream := client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(demoModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("Count from 1 to 5."),
		},
	})

	chunks := 0
	fmt.Print("    ")
	for stream.Next() {
		chunk := stream.Current()
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				fmt.Print(choice.Delta.Content)
				chunks++
			}
		}
	}
	if err := stream.Err(); err != nil {
		return err
	}
	fmt.Printf("\n    (%d content chunks)\n", chunks)
	return nil
}

// toolChat declares one function and lets the gateway's emulation turn the
// backend's free-text answer into a structured call.
func toolChat(ctx context.Context, client openai.Client) error {
	fmt.Println("\n[4] emulated tool call")

	params, err := reflectParameters(&weatherArgs{})
	if err != nil {
		return err
	}

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(demoModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("What's the weather in Chicago?"),
		},
		Tools: []openai.ChatCompletionToolUnionParam{
			{
				OfFunction: &openai.ChatCompletionFunctionToolParam{
					Function: shared.FunctionDefinitionParam{
						Name:        "get_weather",
						Description: openai.String("Get the current weather for a location"),
						Parameters:  params,
					},
				},
			},
		},
	})
	if err != nil {
		return err
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("empty response")
	}

	choice := resp.Choices[0]
	fmt.Printf("    finish_reason: %s\n", choice.FinishReason)
	if len(choice.Message.ToolCalls) == 0 {
		fmt.Printf("    no call; content: %q\n", choice.Message.Content)
		return nil
	}
	for _, tc := range choice.Message.ToolCalls {
		fn := tc.AsFunction()
		fmt.Printf("    call %s: %s(%s)\n", fn.ID, fn.Function.Name, fn.Function.Arguments)

		var args weatherArgs
		if err := json.Unmarshal([]byte(fn.Function.Arguments), &args); err != nil {
			return fmt.Errorf("arguments do not match the declared schema: %w", err)
		}
		fmt.Printf("    parsed: location=%q unit=%q\n", args.Location, args.Unit)
	}
	return nil
}

// reflectParameters derives the JSON parameter schema from the argument
// struct so the declaration cannot drift from the Go type.
func reflectParameters(v any) (shared.FunctionParameters, error) {
	reflector := jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}
	schema := reflector.Reflect(v)

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var params shared.FunctionParameters
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, err
	}
	return params, nil
}
