package driven

// Prompt template names. Templates use named placeholders
// ({context}, {history_block}, {question}, {max_tags}, {filename_hint},
// {truncated}); interpolation happens in the orchestrator.
const (
	// PromptRAGSystem instructs the LLM how to answer grounded queries.
	PromptRAGSystem = "rag_system"

	// PromptRAGUser is the user message template for RAG queries.
	PromptRAGUser = "rag_user"

	// PromptAutoTagSystem instructs the LLM for document tagging.
	PromptAutoTagSystem = "autotag_system"

	// PromptAutoTagUser is the user message template for auto-tagging.
	PromptAutoTagUser = "autotag_user"
)

// PromptStore loads prompt templates. The orchestrator owns fallback
// defaults; a failing or absent store must never break a query.
type PromptStore interface {
	// Load returns the template body for the given name.
	Load(name string) (string, error)
}
