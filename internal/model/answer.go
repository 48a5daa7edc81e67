package model

// Answer is the text returned for one query, tagged with the page it came from.
type Answer struct {
	Text string `json:"text"`
	Page int    `json:"page"`
}

// RankedAnswer is an Answer scored against the round's question.
type RankedAnswer struct {
	Answer
	Score float64 `json:"score"`
}

// AnswerTexts returns the answer texts in order.
func AnswerTexts(answers []RankedAnswer) []string {
	out := make([]string, len(answers))
	for i, a := range answers {
		out[i] = a.Text
	}
	return out
}
