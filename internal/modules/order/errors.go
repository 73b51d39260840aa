package order

import "errors"

var (
	// ErrOrderNotFound используется, когда заказ не найден в хранилище.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderInternal скрывает детали ошибки БД от вызывающего слоя.
	ErrOrderInternal = errors.New("internal error")
	// ErrInvalidSlot возвращается при индексе слота вне 0..3.
	ErrInvalidSlot = errors.New("invalid reminder slot index")
)
