package models

import "errors"

var (
	// ErrInsufficientData: в буфере/серии меньше свечей, чем нужно. Сигнала на этом тике нет.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrDataUnavailable: фид не отдал свечи, повторим на следующем тике.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrInsufficientTrainingData: переобучение пропущено, старая модель остаётся.
	ErrInsufficientTrainingData = errors.New("insufficient training data")

	// ErrValidation: некорректная команда управления, состояние не менялось.
	ErrValidation = errors.New("validation error")

	// ErrOutOfOrder: свеча не новее последней в буфере.
	ErrOutOfOrder = errors.New("candle out of order")

	// ErrModelNotFound: в хранилище нет сохранённой модели.
	ErrModelNotFound = errors.New("model not found")
)
