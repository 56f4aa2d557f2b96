// Package validation содержит функции валидации входных данных.
package validation

import (
	"strings"
	"unicode"
)

// passwordSymbols — фиксированный набор допустимых спецсимволов пароля.
const passwordSymbols = "@$!%*#?&"

// IsValidEmail проверяет базовую форму адреса электронной почты:
// непустые локальная часть и домен с точкой, без пробелов.
func IsValidEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at != strings.LastIndex(email, "@") {
		return false
	}

	local, domain := email[:at], email[at+1:]
	if local == "" || domain == "" {
		return false
	}
	if strings.ContainsAny(email, " \t") {
		return false
	}

	dot := strings.LastIndex(domain, ".")
	if dot <= 0 || dot == len(domain)-1 {
		return false
	}

	return true
}

// IsValidPassword проверяет политику сложности пароля: минимум 6 символов,
// хотя бы одна строчная и одна прописная латинские буквы, цифра и спецсимвол
// из фиксированного набора; другие символы не допускаются.
func IsValidPassword(password string) bool {
	if len(password) < 6 {
		return false
	}

	var hasLower, hasUpper, hasDigit, hasSymbol bool

	for _, ch := range password {
		switch {
		case ch >= 'a' && ch <= 'z':
			hasLower = true
		case ch >= 'A' && ch <= 'Z':
			hasUpper = true
		case unicode.IsDigit(ch):
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, ch):
			hasSymbol = true
		default:
			return false
		}
	}

	return hasLower && hasUpper && hasDigit && hasSymbol
}
