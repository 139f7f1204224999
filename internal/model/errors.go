package model

import "errors"

var (
	// ErrOfferNotFound возвращается, если предложение не найдено.
	ErrOfferNotFound = errors.New("offer not found")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrAlreadyClaimed возвращается при повторном использовании предложения.
	ErrAlreadyClaimed = errors.New("offer already claimed by user")
	// ErrOfferInactive возвращается при попытке использовать неактивное предложение.
	ErrOfferInactive = errors.New("offer is inactive")
	// ErrAuthenticationFailed возвращается, если провайдер идентификации не подтвердил вход.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrForbidden возвращается, если роль пользователя не допускает операцию.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation оборачивается ошибками проверки полей предложения.
	ErrValidation = errors.New("validation failed")
	// ErrStoreUnavailable оборачивает временные ошибки хранилища. Запрос можно повторить.
	ErrStoreUnavailable = errors.New("store unavailable")
)
