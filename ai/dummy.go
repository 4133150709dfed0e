package ai

import (
	"context"
)

// NewDummyModel is useful for testing purposes. It allows you to mock the model's response.
// The streaming path delivers the scripted response as a single chunk.
func NewDummyModel(responseFunc func(ctx context.Context, messages []Message, tools []Tool) (AIMessage, error)) *Model {
	m := &Model{
		ModelName: "dummy",
		callFunc: func(ctx context.Context, model *Model, messages []Message, tools []Tool) (AIMessage, error) {
			return responseFunc(ctx, messages, tools)
		},
	}
	m.streamFunc = func(ctx context.Context, model *Model, messages []Message, tools []Tool, chunkFunc func(AIMessage) error) (AIMessage, error) {
		msg, err := responseFunc(ctx, messages, tools)
		if err != nil {
			return AIMessage{}, err
		}
		if msg.Content != "" || msg.Think != "" {
			chunk := AIMessage{Role: msg.Role, Content: msg.Content, Think: msg.Think}
			if err := chunkFunc(chunk); err != nil {
				return AIMessage{}, err
			}
		}
		return msg, nil
	}
	return m
}
