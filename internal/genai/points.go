package genai

import (
	"encoding/base64"
	"fmt"

	"github.com/nitzanh/examgen/internal/model"
)

// DistributePoints assigns exactly 100 points across the questions in
// order: every question gets floor(100/n), and the first 100 mod n
// questions get one extra point. An empty list returns empty.
func DistributePoints(questions []model.Question) []model.Question {
	n := len(questions)
	if n == 0 {
		return []model.Question{}
	}

	base := 100 / n
	remainder := 100 % n

	out := make([]model.Question, n)
	for i, q := range questions {
		q.Points = base
		if i < remainder {
			q.Points++
		}
		out[i] = q
	}
	return out
}

func dataURL(f Attachment) string {
	return fmt.Sprintf("data:%s;base64,%s", f.MIMEType, base64.StdEncoding.EncodeToString(f.Data))
}
