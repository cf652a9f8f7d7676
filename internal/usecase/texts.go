package usecase

import (
	"github.com/iamvkosarev/bappa-chat/internal/model"
	"github.com/iamvkosarev/bappa-chat/pkg/local"
)

var (
	TextDailyLimitReached = local.NewSet(
		"Daily limit reached! You can send %d messages per day. Please try again tomorrow.",
		local.NewTrans(local.Hin, "आज की सीमा पूरी हो गई! आप प्रतिदिन %d संदेश भेज सकते हैं। कृपया कल फिर कोशिश करें।"),
	)
	TextBusy = local.NewSet(
		"Bappa is still answering your previous message. Please wait a moment.",
		local.NewTrans(local.Hin, "बप्पा अभी आपके पिछले संदेश का उत्तर दे रहे हैं। कृपया थोड़ा रुकें।"),
	)
	TextEmptyMessage = local.NewSet(
		"Please write something for Bappa first.",
		local.NewTrans(local.Hin, "कृपया पहले बप्पा के लिए कुछ लिखें।"),
	)
	TextMissingCredential = local.NewSet(
		"API configuration error. Please check your Groq API key.",
		local.NewTrans(local.Hin, "API कॉन्फ़िगरेशन त्रुटि। कृपया अपनी Groq API key जाँचें।"),
	)
	TextRateLimited = local.NewSet(
		"Rate limit exceeded. Please try again in a moment.",
		local.NewTrans(local.Hin, "अनुरोध सीमा पार हो गई। कृपया कुछ देर बाद फिर कोशिश करें।"),
	)
	TextProviderQuotaExceeded = local.NewSet(
		"API quota exceeded. Please try again later.",
		local.NewTrans(local.Hin, "API कोटा समाप्त हो गया। कृपया बाद में फिर कोशिश करें।"),
	)
	TextEmptyResponse = local.NewSet(
		"No response generated from Groq API. Please try again.",
		local.NewTrans(local.Hin, "Groq API से कोई उत्तर नहीं मिला। कृपया फिर कोशिश करें।"),
	)
	TextProviderError = local.NewSet(
		"Sorry, I encountered an error while processing your request.",
		local.NewTrans(local.Hin, "क्षमा करें, आपके अनुरोध को संसाधित करते समय त्रुटि हुई।"),
	)
	TextInternalError = local.NewSet(
		"Sorry, I encountered an error while processing your request. Please try again.",
		local.NewTrans(local.Hin, "क्षमा करें, कुछ गड़बड़ हो गई। कृपया फिर कोशिश करें।"),
	)
)

func generationFailure(kind model.GenerationErrorKind) (local.TextSet, model.ResponseKind) {
	switch kind {
	case model.GenerationErrorMissingCredential:
		return TextMissingCredential, model.ResponseKindMissingCredential
	case model.GenerationErrorRateLimited:
		return TextRateLimited, model.ResponseKindRateLimited
	case model.GenerationErrorQuotaExceeded:
		return TextProviderQuotaExceeded, model.ResponseKindProviderQuotaExceeded
	case model.GenerationErrorEmptyResponse:
		return TextEmptyResponse, model.ResponseKindEmptyResponse
	default:
		return TextProviderError, model.ResponseKindUnknown
	}
}
