// Package modelstore хранит обученную модель фильтра как непрозрачный блоб под одним ключом.
package modelstore

import "context"

// Key: под этим ключом (или именем файла) лежит модель.
const Key = "probability_filter_model"

// Store: ErrModelNotFound из Load, если модель ещё не сохраняли.
type Store interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, blob []byte) error
}
