package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/freelance-client/internal/pkg/apperror"
)

func TestValidateMessageContent(t *testing.T) {
	assert.NoError(t, ValidateMessageContent("привет"))
	assert.True(t, apperror.IsValidation(ValidateMessageContent("")))
	assert.True(t, apperror.IsValidation(ValidateMessageContent("   \n")))
	assert.True(t, apperror.IsValidation(ValidateMessageContent(strings.Repeat("я", MaxMessageLength+1))))
	assert.NoError(t, ValidateMessageContent(strings.Repeat("я", MaxMessageLength)))
}

func TestValidateUserID(t *testing.T) {
	assert.NoError(t, ValidateUserID("64f1c0a2b9e3"))
	assert.Error(t, ValidateUserID(""))
	assert.Error(t, ValidateUserID("../admin"))
	assert.Error(t, ValidateUserID(strings.Repeat("a", MaxUserIDLength+1)))
}

func TestValidateReview(t *testing.T) {
	assert.NoError(t, ValidateReview(5, "отличная работа"))
	assert.NoError(t, ValidateReview(1, ""))
	assert.Error(t, ValidateReview(0, "ok"))
	assert.Error(t, ValidateReview(6, "ok"))
	assert.Error(t, ValidateReview(3, strings.Repeat("x", MaxReviewCommentLength+1)))
}
