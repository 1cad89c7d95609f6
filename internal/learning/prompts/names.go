package prompts

type PromptName string

const (
	PromptLesson         PromptName = "lesson"
	PromptQuiz           PromptName = "quiz"
	PromptFeedback       PromptName = "feedback"
	PromptKnowledgeGraph PromptName = "knowledge_graph"
	PromptDiagramSVG     PromptName = "diagram_svg"
	PromptImageSVG       PromptName = "image_svg"
	PromptImage          PromptName = "image"
	PromptCorrective     PromptName = "corrective"
)
