// Package model содержит доменные сущности сервиса управления базаром.
package model

import "time"

// Category описывает закрытый набор товарных категорий.
type Category string

const (
	CategoryClothing    Category = "Clothing"
	CategoryFootwear    Category = "Footwear"
	CategoryAccessories Category = "Accessories"
	CategoryHome        Category = "Home"
	CategoryToys        Category = "Toys"
	CategoryElectronics Category = "Electronics"
	CategoryFurniture   Category = "Furniture"
	CategoryOther       Category = "Other"
)

// Categories перечисляет допустимые категории в фиксированном порядке.
var Categories = []Category{
	CategoryClothing,
	CategoryFootwear,
	CategoryAccessories,
	CategoryHome,
	CategoryToys,
	CategoryElectronics,
	CategoryFurniture,
	CategoryOther,
}

// Valid сообщает, входит ли категория в закрытый набор.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ProductStatus описывает статус товара в жизненном цикле.
type ProductStatus string

const (
	// ProductStatusStock — внутренний склад.
	ProductStatusStock ProductStatus = "Stock"
	// ProductStatusBazar — физическая витрина базара.
	ProductStatusBazar ProductStatus = "Bazar"
	// ProductStatusOnline — онлайн-витрина.
	ProductStatusOnline ProductStatus = "Online"
	// ProductStatusSold — остаток исчерпан, товар продан.
	ProductStatusSold ProductStatus = "Sold"
	// ProductStatusReserved — товар отложен для покупателя.
	ProductStatusReserved ProductStatus = "Reserved"
)

// Sellable сообщает, находится ли товар в продаваемом статусе.
func (s ProductStatus) Sellable() bool {
	switch s {
	case ProductStatusStock, ProductStatusBazar, ProductStatusOnline:
		return true
	}
	return false
}

// Valid сообщает, входит ли статус в закрытый набор.
func (s ProductStatus) Valid() bool {
	switch s {
	case ProductStatusStock, ProductStatusBazar, ProductStatusOnline,
		ProductStatusSold, ProductStatusReserved:
		return true
	}
	return false
}

// NextStatusAfterSale возвращает статус товара после списания остатка.
// Исчерпание остатка переводит продаваемый товар в Sold; ненулевой
// остаток и непродаваемые статусы сохраняются.
func NextStatusAfterSale(remaining int, s ProductStatus) ProductStatus {
	if remaining == 0 && s.Sellable() {
		return ProductStatusSold
	}
	return s
}

// Condition описывает состояние товара.
type Condition string

const (
	ConditionNew       Condition = "New"
	ConditionExcellent Condition = "Excellent"
	ConditionGood      Condition = "Good"
	ConditionUsed      Condition = "Used"
)

// Valid сообщает, входит ли состояние в закрытый набор.
func (c Condition) Valid() bool {
	switch c {
	case ConditionNew, ConditionExcellent, ConditionGood, ConditionUsed:
		return true
	}
	return false
}

// Product представляет единицу товара базара.
// Денежные значения хранятся в сентаво.
type Product struct {
	ID          int64         `json:"id"`
	Code        string        `json:"code"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Category    Category      `json:"category"`
	SubCategory string        `json:"sub_category,omitempty"`
	PriceCents  int64         `json:"price_cents"`
	Stock       int           `json:"stock"`
	Condition   Condition     `json:"condition"`
	Status      ProductStatus `json:"status"`
	Size        string        `json:"size,omitempty"`
	Color       string        `json:"color,omitempty"`
	Fabric      string        `json:"fabric,omitempty"`
	Print       string        `json:"print,omitempty"`
	Brand       string        `json:"brand,omitempty"`
	Gender      string        `json:"gender,omitempty"`
	ImageURL    string        `json:"image_url,omitempty"`
	VideoURL    string        `json:"video_url,omitempty"`
	InStore     bool          `json:"in_store"`
	CreatedAt   time.Time     `json:"created_at"`
}

// DonationStatus описывает статус партии пожертвования.
type DonationStatus string

const (
	// DonationStatusTriage — начальная стадия разбора.
	DonationStatusTriage DonationStatus = "Triage"
	// DonationStatusStock — партия принята в товарный учёт (терминальный).
	DonationStatusStock DonationStatus = "Stock"
	// DonationStatusDiscarded — партия отбракована (терминальный).
	DonationStatusDiscarded DonationStatus = "Discarded"
)

// Donation представляет партию пожертвованных вещей, ожидающую разбора.
// Жертвователь может отсутствовать (анонимное пожертвование).
type Donation struct {
	ID                  int64          `json:"id"`
	DonorID             *int64         `json:"donor_id,omitempty"`
	ReceivedAt          time.Time      `json:"received_at"`
	Status              DonationStatus `json:"status"`
	ItemsDescription    string         `json:"items_description"`
	EstimatedValueCents int64          `json:"estimated_value_cents"`
}

// Donor представляет жертвователя.
type Donor struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	TotalDonations int    `json:"total_donations"`
}

// SizeProfile хранит размеры покупателя по типам вещей.
type SizeProfile struct {
	Shirt string `json:"shirt,omitempty"`
	Pants string `json:"pants,omitempty"`
	Shoes string `json:"shoes,omitempty"`
	Waist string `json:"waist,omitempty"`
}

// Preferences хранит предпочтения покупателя для проактивного подбора.
// Отсутствие измерения означает «без ограничения», а не «ничего не подходит».
type Preferences struct {
	Categories    []Category `json:"categories"`
	ProductTypes  []string   `json:"product_types"`
	Colors        []string   `json:"colors"`
	Fabrics       []string   `json:"fabrics"`
	Prints        []string   `json:"prints"`
	Brands        []string   `json:"brands"`
	MinPriceCents *int64     `json:"min_price,omitempty"`
	MaxPriceCents *int64     `json:"max_price,omitempty"`
}

// Customer представляет покупателя с накопленными тратами и предпочтениями.
type Customer struct {
	ID              int64        `json:"id"`
	Name            string       `json:"name"`
	Email           string       `json:"email"`
	Phone           string       `json:"phone"`
	TotalSpentCents int64        `json:"total_spent_cents"`
	Sizes           *SizeProfile `json:"sizes,omitempty"`
	Preferences     *Preferences `json:"preferences,omitempty"`
}

// TransactionType описывает направление финансовой операции.
type TransactionType string

const (
	TransactionIncome  TransactionType = "Income"
	TransactionExpense TransactionType = "Expense"
)

// PaymentMethod описывает способ оплаты.
type PaymentMethod string

const (
	PaymentCash  PaymentMethod = "Cash"
	PaymentPIX   PaymentMethod = "PIX"
	PaymentCard  PaymentMethod = "Card"
	PaymentSplit PaymentMethod = "Split"
)

// Valid сообщает, входит ли способ оплаты в закрытый набор.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentPIX, PaymentCard, PaymentSplit:
		return true
	}
	return false
}

// PaymentItem описывает часть составной оплаты.
type PaymentItem struct {
	Method      PaymentMethod `json:"method"`
	AmountCents int64         `json:"amount"`
}

// Transaction представляет запись финансового журнала.
// Записи только добавляются и никогда не изменяются.
type Transaction struct {
	ID              int64           `json:"id"`
	CreatedAt       time.Time       `json:"created_at"`
	Type            TransactionType `json:"type"`
	AmountCents     int64           `json:"amount_cents"`
	Description     string          `json:"description"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	Breakdown       []PaymentItem   `json:"payment_breakdown,omitempty"`
	PartnerID       *int64          `json:"partner_id,omitempty"`
	CommissionCents *int64          `json:"commission_cents,omitempty"`
}

// Partner представляет партнёра с комиссионным вознаграждением.
type Partner struct {
	ID                    int64  `json:"id"`
	Name                  string `json:"name"`
	Email                 string `json:"email"`
	Phone                 string `json:"phone"`
	PixKey                string `json:"pix_key"`
	CommissionEarnedCents int64  `json:"commission_earned_cents"`
	TotalSalesCount       int    `json:"total_sales_count"`
	Status                string `json:"status"`
	ReferralCode          string `json:"referral_code"`
}

// User представляет оператора системы.
type User struct {
	ID           int64     `json:"id"`
	Login        string    `json:"login"`
	PasswordHash []byte    `json:"password_hash"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Institution представляет профиль учреждения. Запись единственная;
// её отсутствие означает первый запуск системы.
type Institution struct {
	Name      string `json:"name"`
	CNPJ      string `json:"cnpj"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	BazarName string `json:"bazar_name"`
}

// SocialGoal представляет социальную цель сборов учреждения.
type SocialGoal struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	TargetCents  int64  `json:"target_cents"`
	CurrentCents int64  `json:"current_cents"`
	IsActive     bool   `json:"is_active"`
}

// NotificationStatus описывает состояние уведомления о подборе.
type NotificationStatus string

const (
	NotificationStatusNew  NotificationStatus = "NEW"
	NotificationStatusSent NotificationStatus = "SENT"
)

// Notification представляет отложенное сообщение покупателю о подходящем товаре.
type Notification struct {
	ID         int64              `json:"id"`
	CustomerID int64              `json:"customer_id"`
	ProductID  int64              `json:"product_id"`
	Phone      string             `json:"phone"`
	Message    string             `json:"message"`
	Status     NotificationStatus `json:"status"`
	CreatedAt  time.Time          `json:"created_at"`
}

// Backup представляет единый документ выгрузки всего состояния системы.
// При восстановлении обязательно только поле institution; остальные
// коллекции при отсутствии считаются пустыми.
type Backup struct {
	Institution  *Institution  `json:"institution"`
	Products     []Product     `json:"products"`
	Donations    []Donation    `json:"donations"`
	Donors       []Donor       `json:"donors"`
	Customers    []Customer    `json:"customers"`
	Transactions []Transaction `json:"transactions"`
	Partners     []Partner     `json:"partners"`
	Users        []User        `json:"users"`
	SocialGoals  []SocialGoal  `json:"social_goals"`
}
