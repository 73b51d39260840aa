package endpoint

import "errors"

var (
	// ErrEndpointNotFound используется, когда эндпоинт не найден или
	// принадлежит другому пользователю.
	ErrEndpointNotFound = errors.New("delivery endpoint not found")
	// ErrEndpointValidation - неполные или противоречивые данные
	// регистрации (нет ключей подписи, кривой email и т.п.). Не ретраится.
	ErrEndpointValidation = errors.New("invalid delivery endpoint registration data")
	ErrEndpointInternal   = errors.New("internal error")
)
