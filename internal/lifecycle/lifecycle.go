// Package lifecycle реализует машину состояний партии пожертвования.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/mmeshcher/bazar-system/internal/catalog"
	"github.com/mmeshcher/bazar-system/internal/model"
)

// ErrAlreadyResolved возвращается при попытке разобрать партию вне стадии Triage.
// Повторный разбор запрещён: терминальные статусы не пересматриваются.
var (
	ErrAlreadyResolved = errors.New("donation already resolved")
	// ErrInvalidChannel возвращается для неизвестного канала размещения.
	ErrInvalidChannel = errors.New("invalid destination channel")
)

// Machine задаёт политику преобразования партии пожертвования в товар.
// DefaultCategory — именованное правило категории по умолчанию: приём
// пожертвований не собирает категорию, поэтому без явного указания
// товар получает эту категорию.
type Machine struct {
	DefaultCategory model.Category
}

// NewMachine создаёт машину состояний с категорией Other по умолчанию.
func NewMachine() *Machine {
	return &Machine{DefaultCategory: model.CategoryOther}
}

// Resolution описывает решение оператора по партии: отбраковка либо
// канал размещения. Category необязательна и перекрывает политику
// категории по умолчанию.
type Resolution struct {
	Discard  bool
	Channel  model.ProductStatus
	Category model.Category
}

// Resolve переводит партию из Triage в терминальный статус. Для успешного
// разбора синтезируется ровно один товар: имя — из описания партии,
// остаток 1, состояние Good, статус — выбранный канал; каталожный код
// строится по текущему набору товаров. Отбраковка товара не создаёт.
// Партия вне Triage возвращается без изменений с ErrAlreadyResolved.
func (m *Machine) Resolve(donation model.Donation, res Resolution, products []model.Product) (model.Donation, *model.Product, error) {
	if donation.Status != model.DonationStatusTriage {
		return donation, nil, ErrAlreadyResolved
	}

	if res.Discard {
		donation.Status = model.DonationStatusDiscarded
		return donation, nil, nil
	}

	switch res.Channel {
	case model.ProductStatusStock, model.ProductStatusBazar, model.ProductStatusOnline:
	default:
		return donation, nil, fmt.Errorf("%w: %s", ErrInvalidChannel, res.Channel)
	}

	category := m.DefaultCategory
	if res.Category != "" {
		category = res.Category
	}

	code, err := catalog.GenerateCode(category, products)
	if err != nil {
		return donation, nil, err
	}

	product := &model.Product{
		Code:        code,
		Name:        donation.ItemsDescription,
		Description: fmt.Sprintf("Doação #%d", donation.ID),
		Category:    category,
		PriceCents:  donation.EstimatedValueCents,
		Stock:       1,
		Condition:   model.ConditionGood,
		Status:      res.Channel,
	}

	// Статус партии не зависит от выбранного канала.
	donation.Status = model.DonationStatusStock

	return donation, product, nil
}
