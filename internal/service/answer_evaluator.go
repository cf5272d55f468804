package service

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"sign_learn_backend/internal/model"
)

var trueTokens = map[string]bool{
	"true": true, "1": true, "verdadero": true, "v": true,
	"yes": true, "y": true, "sí": true, "si": true,
}

// SafeQuestion 下发给前端的题目，不包含正确答案
type SafeQuestion struct {
	ID              string          `json:"_id"`
	ExerciseType    int             `json:"exerciseType"`
	Order           int             `json:"order"`
	Question        string          `json:"question"`
	Sign            string          `json:"sign,omitempty"`
	PossibleAnswers json.RawMessage `json:"possibleAnswers,omitempty"`
	Pieces          json.RawMessage `json:"pieces,omitempty"`
}

func decodeJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

func decodeList(raw []byte) []interface{} {
	switch v := decodeJSON(raw).(type) {
	case []interface{}:
		return v
	case nil:
		return nil
	default:
		return []interface{}{v}
	}
}

// firstOrScalar 单元素数组取第一个，否则原样返回
func firstOrScalar(v interface{}) interface{} {
	if list, ok := v.([]interface{}); ok {
		if len(list) == 0 {
			return nil
		}
		return list[0]
	}
	return v
}

func normText(v interface{}) string {
	var s string
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		s = x
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(x)
	case json.Number:
		s = x.String()
	default:
		b, _ := json.Marshal(x)
		s = string(b)
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeBool 判断题答案归一化
func NormalizeBool(v interface{}) bool {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case int:
		return x != 0
	case json.Number:
		f, err := x.Float64()
		return err == nil && f != 0
	case string:
		return trueTokens[strings.ToLower(strings.TrimSpace(x))]
	}
	return false
}

func boolLabel(b bool) string {
	if b {
		return "verdadero"
	}
	return "falso"
}

// asIndex 只有整数数值才视为选项下标，布尔值不算
func asIndex(v interface{}) (int, bool) {
	switch x := v.(type) {
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return int(x), true
		}
	case int:
		return x, true
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return int(i), true
		}
	}
	return 0, false
}

// EvaluateAnswer 按题型判定答案，返回是否正确及归一化后的答案
func EvaluateAnswer(ex *model.Exercise, submitted interface{}) (bool, interface{}) {
	switch ex.ExerciseType {
	case model.ExerciseSingleChoice:
		correct := normText(firstOrScalar(decodeJSON(ex.CorrectAnswer)))
		if idx, ok := asIndex(submitted); ok {
			options := decodeList(ex.PossibleAnswers)
			chosen := ""
			if idx >= 0 && idx < len(options) {
				chosen = normText(options[idx])
			}
			return chosen == correct, submitted
		}
		return normText(submitted) == correct, submitted

	case model.ExerciseTrueFalse:
		correct := boolLabel(NormalizeBool(firstOrScalar(decodeJSON(ex.CorrectAnswer))))
		answer := NormalizeBool(submitted)
		return boolLabel(answer) == correct, answer

	case model.ExerciseOrdering:
		correct := decodeList(ex.CorrectAnswer)
		answer, _ := submitted.([]interface{})
		if len(correct) != len(answer) {
			return false, answer
		}
		for i := range correct {
			if normText(correct[i]) != normText(answer[i]) {
				return false, answer
			}
		}
		return true, answer
	}
	return false, submitted
}

// ExposeCorrectAnswer 仅在答错或跳过时返回
func ExposeCorrectAnswer(ex *model.Exercise) map[string]interface{} {
	switch ex.ExerciseType {
	case model.ExerciseSingleChoice:
		stored := firstOrScalar(decodeJSON(ex.CorrectAnswer))
		correct := normText(stored)
		var text interface{} = stored
		for _, option := range decodeList(ex.PossibleAnswers) {
			if normText(option) == correct {
				text = option
				break
			}
		}
		return map[string]interface{}{"type": ex.ExerciseType, "text": text}

	case model.ExerciseTrueFalse:
		label := "Falso"
		if NormalizeBool(firstOrScalar(decodeJSON(ex.CorrectAnswer))) {
			label = "Verdadero"
		}
		return map[string]interface{}{"type": ex.ExerciseType, "label": label}

	case model.ExerciseOrdering:
		order := decodeList(ex.CorrectAnswer)
		if order == nil {
			order = []interface{}{}
		}
		return map[string]interface{}{"type": ex.ExerciseType, "order": order}
	}
	return map[string]interface{}{"type": ex.ExerciseType, "value": nil}
}

func rawOrEmptyList(raw []byte) json.RawMessage {
	if len(decodeList(raw)) == 0 {
		return json.RawMessage("[]")
	}
	return json.RawMessage(raw)
}

// SanitizeExercise 去掉 correctAnswer，判断题默认选项为 Verdadero/Falso
func SanitizeExercise(ex *model.Exercise) SafeQuestion {
	q := SafeQuestion{
		ID:           ex.ID,
		ExerciseType: ex.ExerciseType,
		Order:        ex.Order,
		Question:     ex.Question,
		Sign:         ex.Sign,
	}
	switch ex.ExerciseType {
	case model.ExerciseSingleChoice:
		q.PossibleAnswers = rawOrEmptyList(ex.PossibleAnswers)
	case model.ExerciseTrueFalse:
		if len(decodeList(ex.PossibleAnswers)) == 0 {
			q.PossibleAnswers = json.RawMessage(`["Verdadero","Falso"]`)
		} else {
			q.PossibleAnswers = json.RawMessage(ex.PossibleAnswers)
		}
	case model.ExerciseOrdering:
		if len(decodeList(ex.Pieces)) > 0 {
			q.Pieces = json.RawMessage(ex.Pieces)
		} else {
			q.Pieces = rawOrEmptyList(ex.PossibleAnswers)
		}
	}
	return q
}

// SortExercises 按 (order, id) 升序，返回新切片
func SortExercises(exercises []model.Exercise) []model.Exercise {
	sorted := make([]model.Exercise, len(exercises))
	copy(sorted, exercises)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Order != sorted[j].Order {
			return sorted[i].Order < sorted[j].Order
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// SanitizeLesson 按固定顺序输出课时的全部题目
func SanitizeLesson(lesson *model.Lesson) []SafeQuestion {
	sorted := SortExercises(lesson.Exercises)
	questions := make([]SafeQuestion, 0, len(sorted))
	for i := range sorted {
		questions = append(questions, SanitizeExercise(&sorted[i]))
	}
	return questions
}
