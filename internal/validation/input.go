package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ignatzorin/freelance-client/internal/pkg/apperror"
)

// Константы валидации
const (
	MinMessageLength       = 1
	MaxMessageLength       = 5000
	MinReviewRating        = 1
	MaxReviewRating        = 5
	MaxReviewCommentLength = 2000
	MaxUserIDLength        = 64
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateMessageContent проверяет содержимое сообщения.
func ValidateMessageContent(content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return apperror.New(apperror.ErrCodeValidation, "сообщение не может быть пустым")
	}

	if err := ValidateLength("сообщение", content, MinMessageLength, MaxMessageLength); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	return nil
}

// ValidateUserID проверяет идентификатор собеседника из маршрута.
func ValidateUserID(id string) error {
	if err := ValidateNonEmpty("идентификатор пользователя", id); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if strings.ContainsAny(id, "/?#") || len(id) > MaxUserIDLength {
		return apperror.New(apperror.ErrCodeValidation, "некорректный идентификатор пользователя")
	}
	return nil
}

// ValidateReview проверяет оценку и текст отзыва.
func ValidateReview(rating int, comment string) error {
	if rating < MinReviewRating || rating > MaxReviewRating {
		return apperror.New(apperror.ErrCodeValidation,
			fmt.Sprintf("оценка должна быть от %d до %d", MinReviewRating, MaxReviewRating))
	}
	if err := ValidateLength("отзыв", strings.TrimSpace(comment), 0, MaxReviewCommentLength); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	return nil
}
