// Package catalog отвечает за генерацию каталожных кодов товаров.
package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/mmeshcher/bazar-system/internal/model"
)

// ErrUnknownCategory возвращается для категории вне закрытого набора.
// Такая ошибка означает ошибку конфигурации, а не штатную ситуацию.
var ErrUnknownCategory = errors.New("unknown product category")

// categoryPrefixes задаёт закрытое соответствие категории и префикса кода.
var categoryPrefixes = map[model.Category]string{
	model.CategoryClothing:    "R",
	model.CategoryFootwear:    "C",
	model.CategoryAccessories: "A",
	model.CategoryHome:        "CS",
	model.CategoryToys:        "B",
	model.CategoryElectronics: "E",
	model.CategoryFurniture:   "M",
	model.CategoryOther:       "O",
}

// Prefix возвращает префикс каталожного кода для категории.
func Prefix(category model.Category) (string, error) {
	prefix, ok := categoryPrefixes[category]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	return prefix, nil
}

// GenerateCode строит следующий каталожный код для категории по текущему
// набору товаров: <префикс><номер>, где номер на единицу больше максимального
// числового суффикса среди кодов той же категории. Освободившиеся номера
// никогда не переиспользуются. Номер дополняется нулями минимум до двух цифр.
func GenerateCode(category model.Category, products []model.Product) (string, error) {
	prefix, err := Prefix(category)
	if err != nil {
		return "", err
	}

	re := regexp.MustCompile("^" + prefix + `(\d+)$`)

	maxNum := 0
	for _, p := range products {
		if p.Category != category {
			continue
		}
		m := re.FindStringSubmatch(p.Code)
		if m == nil {
			continue
		}
		num, convErr := strconv.Atoi(m[1])
		if convErr != nil {
			continue
		}
		if num > maxNum {
			maxNum = num
		}
	}

	return fmt.Sprintf("%s%02d", prefix, maxNum+1), nil
}
