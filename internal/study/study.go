// Package study serves the built-in apprentice question banks: course
// listings, per-module question sets, shuffled mock exams, and scoring.
// The banks are embedded at build time and never change at runtime.
package study

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
)

//go:embed data/*.json
var bankFS embed.FS

var (
	ErrCourseNotFound = errors.New("course not found")
	ErrModuleNotFound = errors.New("module not found")
)

type Question struct {
	ID          int      `json:"id"`
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Correct     int      `json:"correctAnswer"`
	Explanation string   `json:"explanation"`
	Section     string   `json:"section,omitempty"`
	Difficulty  string   `json:"difficulty,omitempty"`
}

type Module struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

type Course struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Modules []Module `json:"modules"`
}

// CourseSummary is the listing shape: module metadata without the
// question bodies.
type CourseSummary struct {
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	Modules []ModuleSummary `json:"modules"`
}

type ModuleSummary struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	QuestionCount int    `json:"questionCount"`
}

// Library holds the parsed question banks.
type Library struct {
	courses []Course
	byID    map[string]*Course
}

// Load parses every embedded course file.
func Load() (*Library, error) {
	entries, err := bankFS.ReadDir("data")
	if err != nil {
		return nil, fmt.Errorf("failed to read question banks: %w", err)
	}

	lib := &Library{byID: make(map[string]*Course)}
	for _, entry := range entries {
		data, err := bankFS.ReadFile("data/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read question bank %s: %w", entry.Name(), err)
		}
		var course Course
		if err := json.Unmarshal(data, &course); err != nil {
			return nil, fmt.Errorf("failed to parse question bank %s: %w", entry.Name(), err)
		}
		lib.courses = append(lib.courses, course)
	}

	sort.Slice(lib.courses, func(i, j int) bool { return lib.courses[i].ID < lib.courses[j].ID })
	for i := range lib.courses {
		lib.byID[lib.courses[i].ID] = &lib.courses[i]
	}
	return lib, nil
}

// Courses lists the available courses and their modules.
func (l *Library) Courses() []CourseSummary {
	summaries := make([]CourseSummary, 0, len(l.courses))
	for _, course := range l.courses {
		s := CourseSummary{ID: course.ID, Title: course.Title}
		for _, m := range course.Modules {
			s.Modules = append(s.Modules, ModuleSummary{
				ID:            m.ID,
				Title:         m.Title,
				QuestionCount: len(m.Questions),
			})
		}
		summaries = append(summaries, s)
	}
	return summaries
}

// ModuleQuestions returns the full question set for one module.
func (l *Library) ModuleQuestions(courseID, moduleID string) ([]Question, error) {
	course, ok := l.byID[courseID]
	if !ok {
		return nil, ErrCourseNotFound
	}
	for _, m := range course.Modules {
		if m.ID == moduleID {
			out := make([]Question, len(m.Questions))
			copy(out, m.Questions)
			return out, nil
		}
	}
	return nil, ErrModuleNotFound
}

// MockExam draws a shuffled sample of n questions from across every
// module of the course. When n exceeds the bank size the whole bank is
// returned, still shuffled.
func (l *Library) MockExam(courseID string, n int) ([]Question, error) {
	course, ok := l.byID[courseID]
	if !ok {
		return nil, ErrCourseNotFound
	}

	var pool []Question
	for _, m := range course.Modules {
		pool = append(pool, m.Questions...)
	}
	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	if n <= 0 || n > len(pool) {
		n = len(pool)
	}
	return pool[:n], nil
}

// Answer pairs a question with the option index the candidate chose.
type Answer struct {
	ModuleID   string `json:"moduleId"`
	QuestionID int    `json:"questionId"`
	Selected   int    `json:"selected"`
}

type QuestionResult struct {
	ModuleID    string `json:"moduleId"`
	QuestionID  int    `json:"questionId"`
	Selected    int    `json:"selected"`
	Correct     int    `json:"correctAnswer"`
	IsCorrect   bool   `json:"isCorrect"`
	Explanation string `json:"explanation"`
}

type ScoreResult struct {
	Total     int              `json:"total"`
	Correct   int              `json:"correct"`
	Percent   int              `json:"percent"`
	Questions []QuestionResult `json:"questions"`
}

// Score marks a set of answers against the course bank. Answers that
// reference unknown questions are an error rather than silently skipped.
func (l *Library) Score(courseID string, answers []Answer) (*ScoreResult, error) {
	course, ok := l.byID[courseID]
	if !ok {
		return nil, ErrCourseNotFound
	}

	index := make(map[string]map[int]Question)
	for _, m := range course.Modules {
		index[m.ID] = make(map[int]Question, len(m.Questions))
		for _, q := range m.Questions {
			index[m.ID][q.ID] = q
		}
	}

	result := &ScoreResult{Total: len(answers)}
	for _, a := range answers {
		q, ok := index[a.ModuleID][a.QuestionID]
		if !ok {
			return nil, fmt.Errorf("%w: %s/%d", ErrModuleNotFound, a.ModuleID, a.QuestionID)
		}
		correct := a.Selected == q.Correct
		if correct {
			result.Correct++
		}
		result.Questions = append(result.Questions, QuestionResult{
			ModuleID:    a.ModuleID,
			QuestionID:  a.QuestionID,
			Selected:    a.Selected,
			Correct:     q.Correct,
			IsCorrect:   correct,
			Explanation: q.Explanation,
		})
	}
	if result.Total > 0 {
		result.Percent = result.Correct * 100 / result.Total
	}
	return result, nil
}
