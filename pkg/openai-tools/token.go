package openai_tools

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/sashabaranov/go-openai"
)

// fallbackEncoding is used for models tiktoken does not know, which covers
// every non-OpenAI model served behind an OpenAI-compatible API.
const fallbackEncoding = "cl100k_base"

// Every message is framed as <|start|>{role}\n{content}<|end|>\n and every
// reply is primed with <|start|>assistant<|message|>.
const (
	tokensPerMessage = 3
	tokensPerReply   = 3
)

var (
	encodingsMu sync.Mutex
	encodings   = make(map[string]*tiktoken.Tiktoken)
)

// CountToken estimates the prompt size of messages for aiModel.
func CountToken(messages []openai.ChatCompletionMessage, aiModel string) (int, error) {
	tkm, err := encodingFor(aiModel)
	if err != nil {
		return 0, err
	}
	numTokens := 0
	for _, message := range messages {
		numTokens += tokensPerMessage
		numTokens += len(tkm.Encode(message.Role, nil, nil))
		numTokens += len(tkm.Encode(message.Content, nil, nil))
		if message.Name != "" {
			numTokens += len(tkm.Encode(message.Name, nil, nil)) + 1
		}
	}
	return numTokens + tokensPerReply, nil
}

func encodingFor(aiModel string) (*tiktoken.Tiktoken, error) {
	encodingsMu.Lock()
	defer encodingsMu.Unlock()
	if tkm, ok := encodings[aiModel]; ok {
		return tkm, nil
	}
	tkm, err := tiktoken.EncodingForModel(aiModel)
	if err != nil {
		tkm, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s encoding: %w", fallbackEncoding, err)
		}
	}
	encodings[aiModel] = tkm
	return tkm, nil
}
