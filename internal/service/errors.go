package service

import "errors"

// Ошибки уровня бизнес-логики. Ошибки "не найдено" и конфликты уникальности
// приходят из пакета store и пробрасываются как есть.
var (
	// ErrForbidden аутентифицированный пользователь не имеет права на действие
	ErrForbidden = errors.New("access denied")
	// ErrValidation входные данные не проходят доменные проверки;
	// оборачивается с детализацией конкретного поля
	ErrValidation = errors.New("validation failed")
	// ErrSelfFollow попытка подписаться на самого себя
	ErrSelfFollow = errors.New("cannot follow yourself")
	// ErrSelfDelete попытка администратора удалить собственную учетную запись
	ErrSelfDelete = errors.New("cannot delete your own account")
)
