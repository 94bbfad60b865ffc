// Package quizdata supplies the quiz content served by the key-value
// backend, either the embedded sample chapter or a JSON file from config.
package quizdata

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"chapter-quiz-service/internal/domain"
	"chapter-quiz-service/internal/infra/keyval"
)

//go:embed chapter1.json
var chapter1JSON []byte

type datasetFile struct {
	Chapters  []domain.Chapter             `json:"chapters"`
	Questions map[string][]domain.Question `json:"questions"`
}

// Default returns the embedded sample dataset.
func Default() keyval.Dataset {
	dataset, err := parse(chapter1JSON)
	if err != nil {
		panic(fmt.Sprintf("quizdata: embedded dataset invalid: %v", err))
	}
	return dataset
}

// LoadFile reads a dataset override from a JSON file.
func LoadFile(path string) (keyval.Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return keyval.Dataset{}, fmt.Errorf("read dataset: %w", err)
	}
	dataset, err := parse(raw)
	if err != nil {
		return keyval.Dataset{}, fmt.Errorf("parse dataset %s: %w", path, err)
	}
	return dataset, nil
}

func parse(raw []byte) (keyval.Dataset, error) {
	var file datasetFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return keyval.Dataset{}, err
	}
	if len(file.Chapters) == 0 {
		return keyval.Dataset{}, fmt.Errorf("dataset has no chapters")
	}
	for chapterID, questions := range file.Questions {
		for i, question := range questions {
			if question.CorrectAnswer < 0 || question.CorrectAnswer >= len(question.Options) {
				return keyval.Dataset{}, fmt.Errorf("chapter %s question %d: correct_answer out of range", chapterID, i+1)
			}
		}
	}
	return keyval.Dataset{Chapters: file.Chapters, Questions: file.Questions}, nil
}
