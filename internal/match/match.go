// Package match реализует подбор покупателей под товар («умный подбор»).
package match

import "github.com/mmeshcher/bazar-system/internal/model"

// mode задаёт режим измерения предпочтений.
type mode int

const (
	// modeRequired — измерение обязательно: пустой набор предпочтений
	// не подходит ни одному товару.
	modeRequired mode = iota
	// modeOptionalIfEmpty — пустой набор предпочтений означает
	// «подходит любое значение»; отсутствие значения у товара также
	// проходит проверку.
	modeOptionalIfEmpty
)

// dimension описывает одно измерение сопоставления товара и предпочтений.
type dimension struct {
	name           string
	mode           mode
	productValue   func(model.Product) string
	customerValues func(model.Customer) []string
}

// dimensions — табличное описание всех измерений подбора по наборам значений.
// Размер обрабатывается отдельно: это сравнение на равенство, зависящее от
// категории, а не принадлежность набору.
var dimensions = []dimension{
	{
		name: "category",
		mode: modeRequired,
		productValue: func(p model.Product) string {
			return string(p.Category)
		},
		customerValues: func(c model.Customer) []string {
			values := make([]string, 0, len(c.Preferences.Categories))
			for _, category := range c.Preferences.Categories {
				values = append(values, string(category))
			}
			return values
		},
	},
	{
		name: "type",
		mode: modeOptionalIfEmpty,
		productValue: func(p model.Product) string {
			return p.SubCategory
		},
		customerValues: func(c model.Customer) []string {
			return c.Preferences.ProductTypes
		},
	},
	{
		name: "fabric",
		mode: modeOptionalIfEmpty,
		productValue: func(p model.Product) string {
			return p.Fabric
		},
		customerValues: func(c model.Customer) []string {
			return c.Preferences.Fabrics
		},
	},
}

// FindMatches возвращает покупателей, чьи предпочтения удовлетворяют товару,
// в естественном порядке коллекции. Пустой результат — штатная ситуация.
// Функция чистая: состояние не изменяется.
func FindMatches(product model.Product, customers []model.Customer) []model.Customer {
	var matches []model.Customer

	for _, customer := range customers {
		if Matches(product, customer) {
			matches = append(matches, customer)
		}
	}

	return matches
}

// Matches сообщает, удовлетворяют ли предпочтения покупателя товару.
// Покупатель без структуры предпочтений не подходит никогда.
func Matches(product model.Product, customer model.Customer) bool {
	if customer.Preferences == nil {
		return false
	}

	for _, d := range dimensions {
		if !matchDimension(d, product, customer) {
			return false
		}
	}

	return sizeMatches(product, customer)
}

func matchDimension(d dimension, product model.Product, customer model.Customer) bool {
	value := d.productValue(product)
	values := d.customerValues(customer)

	switch d.mode {
	case modeRequired:
		return contains(values, value)
	case modeOptionalIfEmpty:
		return value == "" || len(values) == 0 || contains(values, value)
	}

	return false
}

// sizeMatches сверяет размер только для категорий, несущих размер.
// Товар без размера проходит проверку для любого покупателя: это
// пропуск отсутствующих данных, а не выражение предпочтения.
func sizeMatches(product model.Product, customer model.Customer) bool {
	if product.Size == "" {
		return true
	}

	switch product.Category {
	case model.CategoryClothing:
		return customer.Sizes != nil && customer.Sizes.Shirt == product.Size
	case model.CategoryFootwear:
		return customer.Sizes != nil && customer.Sizes.Shoes == product.Size
	}

	return true
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
