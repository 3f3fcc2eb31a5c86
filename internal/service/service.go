// Package service реализует бизнес-логику сервиса управления базаром.
package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/bazar-system/internal/catalog"
	"github.com/mmeshcher/bazar-system/internal/lifecycle"
	"github.com/mmeshcher/bazar-system/internal/match"
	"github.com/mmeshcher/bazar-system/internal/model"
	"github.com/mmeshcher/bazar-system/internal/outreach"
	"github.com/mmeshcher/bazar-system/internal/repository"
	"github.com/mmeshcher/bazar-system/internal/validation"
)

// ErrInvalidInput возвращается при пустом логине или пароле.
var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials возвращается при неверной паре логин/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmptyCart возвращается при попытке оформить продажу без позиций.
	ErrEmptyCart = errors.New("empty cart")
	// ErrInvalidPayment возвращается, когда составная оплата не сходится с суммой чека.
	ErrInvalidPayment = errors.New("payment breakdown does not match total")
	// ErrInvalidBackup возвращается для резервной копии без профиля учреждения.
	ErrInvalidBackup = errors.New("invalid backup file")
)

// Repository описывает контракт хранилища данных.
type Repository interface {
	CreateUser(ctx context.Context, login string, passwordHash []byte, name, role string) (int64, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)

	GetInstitution(ctx context.Context) (*model.Institution, error)
	SaveInstitution(ctx context.Context, inst model.Institution) error

	CreateDonor(ctx context.Context, d model.Donor) (int64, error)
	ListDonors(ctx context.Context) ([]model.Donor, error)

	CreateCustomer(ctx context.Context, c model.Customer) (int64, error)
	ListCustomers(ctx context.Context) ([]model.Customer, error)
	GetCustomer(ctx context.Context, id int64) (*model.Customer, error)
	UpdateCustomerProfile(ctx context.Context, id int64, sizes *model.SizeProfile, prefs *model.Preferences) error

	CreateProduct(ctx context.Context, p model.Product) (int64, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	CreateDonation(ctx context.Context, d model.Donation) (int64, error)
	ListDonations(ctx context.Context) ([]model.Donation, error)
	GetDonation(ctx context.Context, id int64) (*model.Donation, error)
	ResolveDonation(ctx context.Context, donation model.Donation, product *model.Product) (int64, error)

	CreateSale(ctx context.Context, items []repository.SaleItem, t model.Transaction, customerID *int64) (int64, error)
	CreateTransaction(ctx context.Context, t model.Transaction) (int64, error)
	ListTransactions(ctx context.Context) ([]model.Transaction, error)

	CreatePartner(ctx context.Context, p model.Partner) (int64, error)
	ListPartners(ctx context.Context) ([]model.Partner, error)

	CreateSocialGoal(ctx context.Context, g model.SocialGoal) (int64, error)
	ListSocialGoals(ctx context.Context) ([]model.SocialGoal, error)

	CreateNotifications(ctx context.Context, ns []model.Notification) error
	GetPendingNotifications(ctx context.Context, limit int) ([]model.Notification, error)
	MarkNotificationSent(ctx context.Context, id int64) error

	Restore(ctx context.Context, b *model.Backup) error
}

// BazarService реализует операции консоли управления базаром.
type BazarService struct {
	repo     Repository
	outreach *outreach.Client
	machine  *lifecycle.Machine
	logger   *zap.Logger
}

// NewBazarService создаёт сервис. Клиент рассылки может быть nil,
// тогда уведомления копятся в очереди до появления шлюза.
func NewBazarService(repo Repository, outreachClient *outreach.Client, logger *zap.Logger) *BazarService {
	return &BazarService{
		repo:     repo,
		outreach: outreachClient,
		machine:  lifecycle.NewMachine(),
		logger:   logger,
	}
}

func hashPassword(login, password string) []byte {
	h := sha256.Sum256([]byte(login + ":" + password))
	return h[:]
}

// RegisterUser регистрирует нового оператора и возвращает его идентификатор.
func (s *BazarService) RegisterUser(ctx context.Context, login, password, name, role string) (int64, error) {
	if login == "" || password == "" {
		return 0, ErrInvalidInput
	}
	if role == "" {
		role = "Volunteer"
	}

	return s.repo.CreateUser(ctx, login, hashPassword(login, password), name, role)
}

// AuthenticateUser проверяет пару логин/пароль и возвращает оператора.
func (s *BazarService) AuthenticateUser(ctx context.Context, login, password string) (*model.User, error) {
	if login == "" || password == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !hmac.Equal(user.PasswordHash, hashPassword(login, password)) {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// Institution возвращает профиль учреждения.
func (s *BazarService) Institution(ctx context.Context) (*model.Institution, error) {
	return s.repo.GetInstitution(ctx)
}

// SaveInstitution сохраняет профиль учреждения.
func (s *BazarService) SaveInstitution(ctx context.Context, inst model.Institution) error {
	if inst.Name == "" {
		return ErrInvalidInput
	}
	return s.repo.SaveInstitution(ctx, inst)
}

// AddProduct регистрирует товар: присваивает каталожный код, сохраняет его
// и возвращает список покупателей, чьим предпочтениям товар соответствует.
// Для каждого совпадения ставится в очередь уведомление.
func (s *BazarService) AddProduct(ctx context.Context, p model.Product) (*model.Product, []model.Customer, error) {
	if p.Name == "" || !p.Category.Valid() || p.PriceCents < 0 || p.Stock < 0 {
		return nil, nil, ErrInvalidInput
	}
	if p.Stock == 0 {
		p.Stock = 1
	}
	if p.Status == "" {
		p.Status = model.ProductStatusStock
	}
	if p.Condition == "" {
		p.Condition = model.ConditionGood
	}

	existing, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, nil, err
	}

	if p.Code == "" {
		code, err := catalog.GenerateCode(p.Category, existing)
		if err != nil {
			return nil, nil, err
		}
		p.Code = code
	}

	id, err := s.repo.CreateProduct(ctx, p)
	if err != nil {
		return nil, nil, err
	}
	p.ID = id

	customers, err := s.repo.ListCustomers(ctx)
	if err != nil {
		return nil, nil, err
	}

	matches := match.FindMatches(p, customers)

	if err := s.queueMatchNotifications(ctx, p, matches); err != nil {
		return nil, nil, err
	}

	return &p, matches, nil
}

func (s *BazarService) queueMatchNotifications(ctx context.Context, p model.Product, matches []model.Customer) error {
	if len(matches) == 0 {
		return nil
	}

	notifications := make([]model.Notification, 0, len(matches))
	for _, c := range matches {
		phone := validation.PhoneDigits(c.Phone)
		if phone == "" {
			continue
		}

		text := fmt.Sprintf("Olá %s, temos uma novidade que é a sua cara: %s", c.Name, p.Name)
		if p.Size != "" {
			text += fmt.Sprintf(" (Tam: %s)", p.Size)
		}
		text += ". Quer reservar?"

		notifications = append(notifications, model.Notification{
			CustomerID: c.ID,
			ProductID:  p.ID,
			Phone:      phone,
			Message:    text,
		})
	}

	return s.repo.CreateNotifications(ctx, notifications)
}

// Products возвращает все товары.
func (s *BazarService) Products(ctx context.Context) ([]model.Product, error) {
	return s.repo.ListProducts(ctx)
}

// DeleteProduct удаляет товар по идентификатору.
func (s *BazarService) DeleteProduct(ctx context.Context, id int64) error {
	return s.repo.DeleteProduct(ctx, id)
}

// RegisterDonation регистрирует партию пожертвования в стадии Triage.
func (s *BazarService) RegisterDonation(ctx context.Context, d model.Donation) (int64, error) {
	if d.ItemsDescription == "" {
		return 0, ErrInvalidInput
	}
	return s.repo.CreateDonation(ctx, d)
}

// Donations возвращает партии пожертвований.
func (s *BazarService) Donations(ctx context.Context) ([]model.Donation, error) {
	return s.repo.ListDonations(ctx)
}

// ResolveDonation завершает разбор партии. При направлении на витрину
// синтезируется ровно один товар с очередным каталожным кодом.
func (s *BazarService) ResolveDonation(ctx context.Context, id int64, res lifecycle.Resolution) (*model.Donation, *model.Product, error) {
	donation, err := s.repo.GetDonation(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, nil, err
	}

	resolved, product, err := s.machine.Resolve(*donation, res, products)
	if err != nil {
		return nil, nil, err
	}

	productID, err := s.repo.ResolveDonation(ctx, resolved, product)
	if err != nil {
		return nil, nil, err
	}
	if product != nil {
		product.ID = productID
	}

	return &resolved, product, nil
}

// CreateDonor создаёт жертвователя.
func (s *BazarService) CreateDonor(ctx context.Context, d model.Donor) (int64, error) {
	if d.Name == "" {
		return 0, ErrInvalidInput
	}
	return s.repo.CreateDonor(ctx, d)
}

// Donors возвращает всех жертвователей.
func (s *BazarService) Donors(ctx context.Context) ([]model.Donor, error) {
	return s.repo.ListDonors(ctx)
}

// CreateCustomer создаёт покупателя.
func (s *BazarService) CreateCustomer(ctx context.Context, c model.Customer) (int64, error) {
	if c.Name == "" {
		return 0, ErrInvalidInput
	}
	return s.repo.CreateCustomer(ctx, c)
}

// Customers возвращает всех покупателей.
func (s *BazarService) Customers(ctx context.Context) ([]model.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

// UpdateCustomerProfile обновляет размеры и предпочтения покупателя.
func (s *BazarService) UpdateCustomerProfile(ctx context.Context, id int64, sizes *model.SizeProfile, prefs *model.Preferences) error {
	return s.repo.UpdateCustomerProfile(ctx, id, sizes, prefs)
}

// CheckoutItem описывает позицию чека.
type CheckoutItem struct {
	ProductID int64
	Quantity  int
}

// CheckoutRequest описывает оформление продажи на кассе.
type CheckoutRequest struct {
	Items           []CheckoutItem
	PaymentMethod   model.PaymentMethod
	Breakdown       []model.PaymentItem
	CustomerID      *int64
	PartnerID       *int64
	CommissionCents *int64
}

// Checkout проводит продажу: считает сумму чека по каталожным ценам,
// проверяет составную оплату и атомарно списывает остатки.
func (s *BazarService) Checkout(ctx context.Context, req CheckoutRequest) (*model.Transaction, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}

	var total int64
	count := 0
	saleItems := make([]repository.SaleItem, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidInput
		}

		product, err := s.repo.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}

		total += product.PriceCents * int64(item.Quantity)
		count += item.Quantity
		saleItems = append(saleItems, repository.SaleItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	if req.PaymentMethod == model.PaymentSplit {
		if !validation.SplitSumsToTotal(req.Breakdown, total) {
			return nil, ErrInvalidPayment
		}
	} else {
		req.Breakdown = nil
	}

	t := model.Transaction{
		Type:            model.TransactionIncome,
		AmountCents:     total,
		Description:     fmt.Sprintf("Venda (%s) de %d itens", req.PaymentMethod, count),
		PaymentMethod:   req.PaymentMethod,
		Breakdown:       req.Breakdown,
		PartnerID:       req.PartnerID,
		CommissionCents: req.CommissionCents,
	}

	id, err := s.repo.CreateSale(ctx, saleItems, t, req.CustomerID)
	if err != nil {
		return nil, err
	}
	t.ID = id
	t.CreatedAt = time.Now()

	return &t, nil
}

// RecordExpense добавляет расход в журнал. Непустая метка попадает
// в описание в виде префикса "[Метка] описание".
func (s *BazarService) RecordExpense(ctx context.Context, tag, description string, amountCents int64) (int64, error) {
	if amountCents <= 0 || description == "" {
		return 0, ErrInvalidInput
	}

	if tag != "" {
		description = fmt.Sprintf("[%s] %s", tag, description)
	}

	return s.repo.CreateTransaction(ctx, model.Transaction{
		Type:        model.TransactionExpense,
		AmountCents: amountCents,
		Description: description,
	})
}

// Transactions возвращает журнал операций.
func (s *BazarService) Transactions(ctx context.Context) ([]model.Transaction, error) {
	return s.repo.ListTransactions(ctx)
}

// FinanceSummary агрегирует журнал операций.
type FinanceSummary struct {
	IncomeCents  int64
	ExpenseCents int64
	BalanceCents int64
}

// Summary считает итоги по журналу операций.
func (s *BazarService) Summary(ctx context.Context) (*FinanceSummary, error) {
	transactions, err := s.repo.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}

	var sum FinanceSummary
	for _, t := range transactions {
		switch t.Type {
		case model.TransactionIncome:
			sum.IncomeCents += t.AmountCents
		case model.TransactionExpense:
			sum.ExpenseCents += t.AmountCents
		}
	}
	sum.BalanceCents = sum.IncomeCents - sum.ExpenseCents

	return &sum, nil
}

// CreatePartner создаёт партнёра.
func (s *BazarService) CreatePartner(ctx context.Context, p model.Partner) (int64, error) {
	if p.Name == "" {
		return 0, ErrInvalidInput
	}
	if p.Status == "" {
		p.Status = "Active"
	}
	return s.repo.CreatePartner(ctx, p)
}

// Partners возвращает всех партнёров.
func (s *BazarService) Partners(ctx context.Context) ([]model.Partner, error) {
	return s.repo.ListPartners(ctx)
}

// CreateSocialGoal создаёт социальную цель.
func (s *BazarService) CreateSocialGoal(ctx context.Context, g model.SocialGoal) (int64, error) {
	if g.Title == "" {
		return 0, ErrInvalidInput
	}
	return s.repo.CreateSocialGoal(ctx, g)
}

// SocialGoals возвращает все социальные цели.
func (s *BazarService) SocialGoals(ctx context.Context) ([]model.SocialGoal, error) {
	return s.repo.ListSocialGoals(ctx)
}

// ExportBackup собирает полное состояние системы в единый документ.
func (s *BazarService) ExportBackup(ctx context.Context) (*model.Backup, error) {
	inst, err := s.repo.GetInstitution(ctx)
	if err != nil {
		return nil, err
	}

	b := &model.Backup{Institution: inst}

	if b.Products, err = s.repo.ListProducts(ctx); err != nil {
		return nil, err
	}
	if b.Donations, err = s.repo.ListDonations(ctx); err != nil {
		return nil, err
	}
	if b.Donors, err = s.repo.ListDonors(ctx); err != nil {
		return nil, err
	}
	if b.Customers, err = s.repo.ListCustomers(ctx); err != nil {
		return nil, err
	}
	if b.Transactions, err = s.repo.ListTransactions(ctx); err != nil {
		return nil, err
	}
	if b.Partners, err = s.repo.ListPartners(ctx); err != nil {
		return nil, err
	}
	if b.Users, err = s.repo.ListUsers(ctx); err != nil {
		return nil, err
	}
	if b.SocialGoals, err = s.repo.ListSocialGoals(ctx); err != nil {
		return nil, err
	}

	return b, nil
}

// RestoreBackup замещает состояние системы содержимым резервной копии.
// Копия без профиля учреждения отклоняется до каких-либо изменений.
func (s *BazarService) RestoreBackup(ctx context.Context, b *model.Backup) error {
	if b == nil || b.Institution == nil {
		return ErrInvalidBackup
	}
	return s.repo.Restore(ctx, b)
}

// StartOutreachDispatch запускает фоновую отправку накопленных уведомлений.
// Завершается по отмене контекста.
func (s *BazarService) StartOutreachDispatch(ctx context.Context) {
	if s.outreach == nil {
		s.logger.Info("шлюз рассылки не настроен, отправка уведомлений отключена")
		return
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.dispatchPendingBatch(ctx)
		}
	}
}

func (s *BazarService) dispatchPendingBatch(ctx context.Context) {
	pending, err := s.repo.GetPendingNotifications(ctx, 10)
	if err != nil {
		s.logger.Error("не удалось получить очередь уведомлений", zap.Error(err))
		return
	}

	for _, n := range pending {
		code, retryAfter, err := s.outreach.SendMessage(ctx, outreach.Message{
			Phone: n.Phone,
			Text:  n.Message,
		})
		if err != nil {
			s.logger.Warn("ошибка отправки уведомления",
				zap.Int64("notification_id", n.ID),
				zap.Error(err))
			continue
		}

		if code == http.StatusTooManyRequests {
			s.logger.Info("шлюз ограничил частоту отправки",
				zap.Duration("retry_after", retryAfter))
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryAfter):
			}
			continue
		}

		if err := s.repo.MarkNotificationSent(ctx, n.ID); err != nil {
			s.logger.Error("не удалось пометить уведомление отправленным",
				zap.Int64("notification_id", n.ID),
				zap.Error(err))
		}
	}
}
