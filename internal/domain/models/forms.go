package models

// Form and query inputs of the dashboard routes.

type LoginForm struct {
	Username string `form:"username" validate:"max=128"`
	Password string `form:"password" validate:"max=256"`
}

type ChatForm struct {
	Message string `form:"message" validate:"max=2000"`
}

type SuggestionForm struct {
	Question string `form:"question" validate:"required,max=500"`
}

type AnalyzeForm struct {
	Tickers string `form:"tickers" validate:"max=500"`
}

type ViewQuery struct {
	View  string `query:"view"`
	Query string `query:"query" validate:"max=200"`
}
