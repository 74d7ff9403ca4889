package chat

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/devkaluri/rag-chat/index"
	"github.com/devkaluri/rag-chat/llm"
	"github.com/devkaluri/rag-chat/session"
)

const (
	defaultMaxPromptChars = 12000
	defaultMaxHistory     = 10

	systemPrompt = "Use the following pieces of retrieved context to answer the question. " +
		"Use three to seven sentences maximum and keep the answer concise, while still giving depth. " +
		"If the context does not contain the answer, say that you don't have that information instead of guessing."

	reformulatePrompt = "Given a chat history and the latest user question which might reference " +
		"context in the chat history, formulate a standalone question which can be understood " +
		"without the chat history. Do NOT answer the question, just reformulate it if needed " +
		"and otherwise return it as is."
)

// Assembler renders the message sequence sent to the model: system
// instruction with source-tagged context, recent history turns, and the
// question. When the character budget is exceeded it drops the oldest
// history turns first, then the lowest-similarity chunks. The question
// itself is never truncated.
type Assembler struct {
	maxChars   int
	maxHistory int
}

func NewAssembler(maxChars, maxHistory int) *Assembler {
	if maxChars <= 0 {
		maxChars = defaultMaxPromptChars
	}
	if maxHistory <= 0 {
		maxHistory = defaultMaxHistory
	}
	return &Assembler{maxChars: maxChars, maxHistory: maxHistory}
}

func (a *Assembler) Assemble(question string, chunks []index.Result, history []session.Turn) []llm.Message {
	if len(history) > a.maxHistory {
		history = history[len(history)-a.maxHistory:]
	}

	for {
		size := promptSize(question, chunks, history)
		if size <= a.maxChars {
			break
		}
		if len(history) > 0 {
			history = history[1:]
			continue
		}
		if len(chunks) > 0 {
			chunks = chunks[:len(chunks)-1]
			continue
		}
		// Only the system instruction and the question remain; the
		// question is kept whole regardless of the budget.
		break
	}

	messages := make([]llm.Message, 0, 2*len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemMessage(chunks)})
	for _, turn := range history {
		messages = append(messages,
			llm.Message{Role: llm.RoleUser, Content: turn.Question},
			llm.Message{Role: llm.RoleAssistant, Content: turn.Answer},
		)
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: question})
	return messages
}

func systemMessage(chunks []index.Result) string {
	if len(chunks) == 0 {
		return systemPrompt + "\n\nContext: no relevant documents were found."
	}

	var sb strings.Builder
	sb.WriteString(systemPrompt)
	sb.WriteString("\n\nContext:\n")
	for _, result := range chunks {
		sb.WriteString(renderChunk(result.Chunk))
		sb.WriteString("\n\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderChunk(chunk index.Chunk) string {
	source := filepath.Base(chunk.Document)
	if chunk.Page > 0 {
		return fmt.Sprintf("[%s, page %d]\n%s", source, chunk.Page, chunk.Text)
	}
	return fmt.Sprintf("[%s]\n%s", source, chunk.Text)
}

func promptSize(question string, chunks []index.Result, history []session.Turn) int {
	size := len(systemMessage(chunks)) + len(question)
	for _, turn := range history {
		size += len(turn.Question) + len(turn.Answer)
	}
	return size
}

// reformulateMessages builds the history-aware rewrite request: the
// model turns a follow-up question into a standalone one usable for
// retrieval.
func reformulateMessages(question string, history []session.Turn) []llm.Message {
	messages := make([]llm.Message, 0, 2*len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: reformulatePrompt})
	for _, turn := range history {
		messages = append(messages,
			llm.Message{Role: llm.RoleUser, Content: turn.Question},
			llm.Message{Role: llm.RoleAssistant, Content: turn.Answer},
		)
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: question})
	return messages
}
