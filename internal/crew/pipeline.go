package crew

// AgentDef describes one agent of the article pipeline.
type AgentDef struct {
	Name      string
	Role      string
	Goal      string
	Backstory string
	// UsesSearch attaches the web search tool when it is configured.
	UsesSearch bool
}

// TaskDef describes one task of the article pipeline. Description may contain
// %[1]s, which is replaced with the topic.
type TaskDef struct {
	ID             string   `json:"id"`
	Agent          string   `json:"agent"`
	Title          string   `json:"title,omitempty"` // article heading; empty keeps the task out of the article
	Description    string   `json:"description"`
	ExpectedOutput string   `json:"expected_output"`
	DependsOn      []string `json:"depends_on,omitempty"`
}

// ArticleAgents are the eight agents of the article pipeline.
var ArticleAgents = []AgentDef{
	{
		Name:       "researcher",
		Role:       "Research Specialist",
		Goal:       "Gather comprehensive and accurate information on the topic",
		Backstory:  "An experienced researcher with a keen eye for credible sources and relevant data.",
		UsesSearch: true,
	},
	{
		Name:      "analyst",
		Role:      "Content Analyst",
		Goal:      "Turn research into clear insights, patterns and recommendations",
		Backstory: "A strategist who finds the signal in large volumes of information.",
	},
	{
		Name:      "abstract_writer",
		Role:      "Abstract and Keywords Specialist",
		Goal:      "Write a compelling abstract and choose precise keywords",
		Backstory: "An academic editor who summarises complex work for busy readers.",
	},
	{
		Name:      "content_developer",
		Role:      "Content Development Specialist",
		Goal:      "Develop the body of the article with depth and structure",
		Backstory: "A senior writer who builds long-form arguments section by section.",
	},
	{
		Name:      "results_analyst",
		Role:      "Results Specialist",
		Goal:      "Present findings, data and metrics clearly",
		Backstory: "A data storyteller who makes numbers easy to follow.",
	},
	{
		Name:      "discussion_strategist",
		Role:      "Discussion and Analysis Specialist",
		Goal:      "Interpret the results and discuss their implications",
		Backstory: "A critical thinker who relates findings to practice and limitations.",
	},
	{
		Name:      "conclusions_synthesizer",
		Role:      "Conclusions and Executive Summary Specialist",
		Goal:      "Synthesise the article into clear conclusions and takeaways",
		Backstory: "An executive advisor who distils long reports into decisions.",
	},
	{
		Name:      "bibliography_specialist",
		Role:      "Bibliography Specialist",
		Goal:      "Compile the references used by the article in a consistent format",
		Backstory: "A librarian versed in academic and professional citation styles.",
	},
}

// ArticleTasks are the tasks of the article pipeline in declaration order.
var ArticleTasks = []TaskDef{
	{
		ID:             "research",
		Agent:          "researcher",
		Description:    "Research the topic: %[1]s. Collect key facts, current trends, statistics, expert opinions and recent developments, citing sources.",
		ExpectedOutput: "Research notes with facts, trends, figures and sources.",
	},
	{
		ID:             "analysis",
		Agent:          "analyst",
		Description:    "Analyse the research on %[1]s. Identify the main insights, patterns and opportunities.",
		ExpectedOutput: "An analysis report with key insights and recommendations.",
		DependsOn:      []string{"research"},
	},
	{
		ID:             "abstract_keywords",
		Agent:          "abstract_writer",
		Title:          "Resumen y palabras clave",
		Description:    "Write the abstract of an article about %[1]s and list 5 to 8 keywords.",
		ExpectedOutput: "An abstract of about 200 words followed by a keyword line.",
		DependsOn:      []string{"research", "analysis"},
	},
	{
		ID:             "resultados",
		Agent:          "results_analyst",
		Title:          "Resultados",
		Description:    "Write the results section about %[1]s, presenting the findings and supporting data.",
		ExpectedOutput: "A results section in Markdown with findings and metrics.",
		DependsOn:      []string{"research", "analysis"},
	},
	{
		ID:             "desarrollo",
		Agent:          "content_developer",
		Title:          "Desarrollo",
		Description:    "Write the body of the article about %[1]s, consistent with the abstract.",
		ExpectedOutput: "The body of the article in Markdown with subsections.",
		DependsOn:      []string{"analysis", "abstract_keywords"},
	},
	{
		ID:             "discusion",
		Agent:          "discussion_strategist",
		Title:          "Discusión",
		Description:    "Discuss the results about %[1]s: interpretation, implications and limitations.",
		ExpectedOutput: "A discussion section in Markdown.",
		DependsOn:      []string{"analysis", "resultados"},
	},
	{
		ID:             "conclusiones",
		Agent:          "conclusions_synthesizer",
		Title:          "Conclusiones",
		Description:    "Write the conclusions of the article about %[1]s with clear takeaways.",
		ExpectedOutput: "A conclusions section in Markdown.",
		DependsOn:      []string{"abstract_keywords", "desarrollo", "resultados", "discusion"},
	},
	{
		ID:             "bibliografia",
		Agent:          "bibliography_specialist",
		Title:          "Bibliografía",
		Description:    "Compile the bibliography for the article about %[1]s from the sources cited.",
		ExpectedOutput: "A formatted reference list in Markdown.",
		DependsOn:      []string{"research", "desarrollo", "resultados", "discusion", "conclusiones"},
	},
}

// ArticleSections is the order sections appear in the assembled article.
var ArticleSections = []string{
	"abstract_keywords",
	"desarrollo",
	"resultados",
	"discusion",
	"conclusiones",
	"bibliografia",
}
