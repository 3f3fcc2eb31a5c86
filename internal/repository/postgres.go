// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/mmeshcher/bazar-system/internal/model"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserExists возвращается при попытке создать оператора с существующим логином.
var (
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если оператор не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrInstitutionNotRegistered возвращается до первичной регистрации учреждения.
	ErrInstitutionNotRegistered = errors.New("institution not registered")
	// ErrProductNotFound возвращается, если товар не найден.
	ErrProductNotFound = errors.New("product not found")
	// ErrProductCodeExists возвращается при конфликте каталожного кода.
	ErrProductCodeExists = errors.New("product code already exists")
	// ErrCustomerNotFound возвращается, если покупатель не найден.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrDonationNotFound возвращается, если партия пожертвования не найдена.
	ErrDonationNotFound = errors.New("donation not found")
	// ErrDonationAlreadyResolved возвращается при повторном разборе партии.
	ErrDonationAlreadyResolved = errors.New("donation already resolved")
	// ErrInsufficientStock возвращается при продаже сверх остатка.
	ErrInsufficientStock = errors.New("insufficient product stock")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		// Ретраи полезны для Serialization Failure и Deadlock;
		// переподключениями pgxpool занимается сам.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateUser создаёт нового оператора.
func (r *PostgresRepository) CreateUser(ctx context.Context, login string, passwordHash []byte, name, role string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (login, password_hash, name, role) VALUES ($1, $2, $3, $4) RETURNING id`,
		login, passwordHash, name, role,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, login)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// GetUserByLogin возвращает оператора по логину.
func (r *PostgresRepository) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, login, password_hash, name, role, created_at FROM users WHERE login = $1`,
		login,
	)

	var u model.User
	err := row.Scan(&u.ID, &u.Login, &u.PasswordHash, &u.Name, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

// ListUsers возвращает всех операторов.
func (r *PostgresRepository) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, login, password_hash, name, role, created_at FROM users ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	var res []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Login, &u.PasswordHash, &u.Name, &u.Role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		res = append(res, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetInstitution возвращает профиль учреждения.
// Отсутствие записи означает первый запуск системы.
func (r *PostgresRepository) GetInstitution(ctx context.Context) (*model.Institution, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT name, cnpj, address, phone, email, bazar_name FROM institution WHERE id = 1`,
	)

	var inst model.Institution
	err := row.Scan(&inst.Name, &inst.CNPJ, &inst.Address, &inst.Phone, &inst.Email, &inst.BazarName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInstitutionNotRegistered
		}
		return nil, fmt.Errorf("get institution: %w", err)
	}

	return &inst, nil
}

// SaveInstitution создаёт или обновляет профиль учреждения.
func (r *PostgresRepository) SaveInstitution(ctx context.Context, inst model.Institution) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO institution (id, name, cnpj, address, phone, email, bazar_name)
		 VALUES (1, $1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE
		 SET name = $1, cnpj = $2, address = $3, phone = $4, email = $5, bazar_name = $6`,
		inst.Name, inst.CNPJ, inst.Address, inst.Phone, inst.Email, inst.BazarName,
	)
	if err != nil {
		return fmt.Errorf("save institution: %w", err)
	}
	return nil
}

// CreateDonor создаёт жертвователя.
func (r *PostgresRepository) CreateDonor(ctx context.Context, d model.Donor) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO donors (name, email, phone) VALUES ($1, $2, $3) RETURNING id`,
		d.Name, d.Email, d.Phone,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create donor: %w", err)
	}
	return id, nil
}

// ListDonors возвращает всех жертвователей.
func (r *PostgresRepository) ListDonors(ctx context.Context) ([]model.Donor, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, email, phone, total_donations FROM donors ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("select donors: %w", err)
	}
	defer rows.Close()

	var res []model.Donor
	for rows.Next() {
		var d model.Donor
		if err := rows.Scan(&d.ID, &d.Name, &d.Email, &d.Phone, &d.TotalDonations); err != nil {
			return nil, fmt.Errorf("scan donor: %w", err)
		}
		res = append(res, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateCustomer создаёт покупателя вместе с профилем размеров и предпочтениями.
func (r *PostgresRepository) CreateCustomer(ctx context.Context, c model.Customer) (int64, error) {
	sizes, err := marshalOptional(c.Sizes)
	if err != nil {
		return 0, fmt.Errorf("marshal sizes: %w", err)
	}
	prefs, err := marshalOptional(c.Preferences)
	if err != nil {
		return 0, fmt.Errorf("marshal preferences: %w", err)
	}

	var id int64
	err = r.pool.QueryRow(ctx,
		`INSERT INTO customers (name, email, phone, sizes, preferences)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		c.Name, c.Email, c.Phone, sizes, prefs,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create customer: %w", err)
	}
	return id, nil
}

// ListCustomers возвращает покупателей в естественном порядке коллекции.
func (r *PostgresRepository) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, email, phone, total_spent, sizes, preferences FROM customers ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("select customers: %w", err)
	}
	defer rows.Close()

	var res []model.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetCustomer возвращает покупателя по идентификатору.
func (r *PostgresRepository) GetCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, email, phone, total_spent, sizes, preferences FROM customers WHERE id = $1`,
		id,
	)

	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}

	return &c, nil
}

// UpdateCustomerProfile обновляет размеры и предпочтения покупателя.
func (r *PostgresRepository) UpdateCustomerProfile(ctx context.Context, id int64, sizes *model.SizeProfile, prefs *model.Preferences) error {
	sizesRaw, err := marshalOptional(sizes)
	if err != nil {
		return fmt.Errorf("marshal sizes: %w", err)
	}
	prefsRaw, err := marshalOptional(prefs)
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE customers SET sizes = $2, preferences = $3 WHERE id = $1`,
		id, sizesRaw, prefsRaw,
	)
	if err != nil {
		return fmt.Errorf("update customer profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

const productColumns = `id, code, name, description, category, sub_category, price, stock,
	 condition, status, size, color, fabric, print, brand, gender,
	 image_url, video_url, in_store, created_at`

// CreateProduct сохраняет товар и возвращает его идентификатор.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p model.Product) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO products (code, name, description, category, sub_category, price, stock,
		 condition, status, size, color, fabric, print, brand, gender, image_url, video_url, in_store)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		 RETURNING id`,
		p.Code, p.Name, p.Description, string(p.Category), p.SubCategory, p.PriceCents, p.Stock,
		string(p.Condition), string(p.Status), p.Size, p.Color, p.Fabric, p.Print, p.Brand,
		p.Gender, p.ImageURL, p.VideoURL, p.InStore,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrProductCodeExists, p.Code)
		}
		return 0, fmt.Errorf("create product: %w", err)
	}
	return id, nil
}

// ListProducts возвращает все товары в порядке добавления.
func (r *PostgresRepository) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var res []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetProduct возвращает товар по идентификатору.
func (r *PostgresRepository) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`,
		id,
	)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	return &p, nil
}

// DeleteProduct удаляет товар. Удаление возможно только явным действием оператора.
func (r *PostgresRepository) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// CreateDonation регистрирует партию пожертвования в стадии Triage.
func (r *PostgresRepository) CreateDonation(ctx context.Context, d model.Donation) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO donations (donor_id, status, items_description, estimated_value)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		d.DonorID, string(model.DonationStatusTriage), d.ItemsDescription, d.EstimatedValueCents,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create donation: %w", err)
	}
	return id, nil
}

// ListDonations возвращает партии пожертвований, свежие первыми.
func (r *PostgresRepository) ListDonations(ctx context.Context) ([]model.Donation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, donor_id, received_at, status, items_description, estimated_value
		 FROM donations ORDER BY received_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select donations: %w", err)
	}
	defer rows.Close()

	var res []model.Donation
	for rows.Next() {
		var d model.Donation
		var status string
		if err := rows.Scan(&d.ID, &d.DonorID, &d.ReceivedAt, &status, &d.ItemsDescription, &d.EstimatedValueCents); err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}
		d.Status = model.DonationStatus(status)
		res = append(res, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetDonation возвращает партию пожертвования по идентификатору.
func (r *PostgresRepository) GetDonation(ctx context.Context, id int64) (*model.Donation, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, donor_id, received_at, status, items_description, estimated_value
		 FROM donations WHERE id = $1`,
		id,
	)

	var d model.Donation
	var status string
	err := row.Scan(&d.ID, &d.DonorID, &d.ReceivedAt, &status, &d.ItemsDescription, &d.EstimatedValueCents)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDonationNotFound
		}
		return nil, fmt.Errorf("get donation: %w", err)
	}
	d.Status = model.DonationStatus(status)

	return &d, nil
}

// ResolveDonation фиксирует разбор партии: переводит её в терминальный статус,
// при успешном разборе сохраняет синтезированный товар и увеличивает счётчик
// пожертвований жертвователя. Партия вне Triage не изменяется.
// Возвращает идентификатор созданного товара (0 при отбраковке).
func (r *PostgresRepository) ResolveDonation(ctx context.Context, donation model.Donation, product *model.Product) (int64, error) {
	var productID int64
	err := r.withRetry(ctx, func() error {
		var txErr error
		productID, txErr = r.resolveDonationTx(ctx, donation, product)
		return txErr
	})
	return productID, err
}

func (r *PostgresRepository) resolveDonationTx(ctx context.Context, donation model.Donation, product *model.Product) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE donations SET status = $2 WHERE id = $1 AND status = $3`,
		donation.ID, string(donation.Status), string(model.DonationStatusTriage),
	)
	if err != nil {
		return 0, fmt.Errorf("update donation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrDonationAlreadyResolved
	}

	var productID int64
	if product != nil {
		err = tx.QueryRow(ctx,
			`INSERT INTO products (code, name, description, category, price, stock, condition, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
			product.Code, product.Name, product.Description, string(product.Category),
			product.PriceCents, product.Stock, string(product.Condition), string(product.Status),
		).Scan(&productID)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return 0, fmt.Errorf("%w: %s", ErrProductCodeExists, product.Code)
			}
			return 0, fmt.Errorf("insert product: %w", err)
		}
	}

	if donation.DonorID != nil {
		_, err = tx.Exec(ctx,
			`UPDATE donors SET total_donations = total_donations + 1 WHERE id = $1`,
			*donation.DonorID,
		)
		if err != nil {
			return 0, fmt.Errorf("update donor counter: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return productID, nil
}

// SaleItem описывает позицию продажи.
type SaleItem struct {
	ProductID int64
	Quantity  int
}

// CreateSale проводит продажу: списывает остатки, добавляет запись журнала,
// начисляет траты покупателю и комиссию партнёру. Вся продажа — одна
// транзакция: нехватка остатка отменяет её целиком.
func (r *PostgresRepository) CreateSale(ctx context.Context, items []SaleItem, t model.Transaction, customerID *int64) (int64, error) {
	var saleID int64
	err := r.withRetry(ctx, func() error {
		var txErr error
		saleID, txErr = r.createSaleTx(ctx, items, t, customerID)
		return txErr
	})
	return saleID, err
}

func (r *PostgresRepository) createSaleTx(ctx context.Context, items []SaleItem, t model.Transaction, customerID *int64) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, item := range items {
		var stock int
		var status string
		err = tx.QueryRow(ctx,
			`SELECT stock, status FROM products WHERE id = $1 FOR UPDATE`,
			item.ProductID,
		).Scan(&stock, &status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return 0, fmt.Errorf("%w: id %d", ErrProductNotFound, item.ProductID)
			}
			return 0, fmt.Errorf("lock product: %w", err)
		}

		if item.Quantity <= 0 || stock < item.Quantity {
			return 0, fmt.Errorf("%w: id %d", ErrInsufficientStock, item.ProductID)
		}

		remaining := stock - item.Quantity
		newStatus := model.NextStatusAfterSale(remaining, model.ProductStatus(status))

		_, err = tx.Exec(ctx,
			`UPDATE products SET stock = $2, status = $3 WHERE id = $1`,
			item.ProductID, remaining, string(newStatus),
		)
		if err != nil {
			return 0, fmt.Errorf("update product stock: %w", err)
		}
	}

	breakdown, err := marshalOptionalSlice(t.Breakdown)
	if err != nil {
		return 0, fmt.Errorf("marshal breakdown: %w", err)
	}

	var saleID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO transactions (type, amount, description, payment_method, payment_breakdown, partner_id, commission)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		string(t.Type), t.AmountCents, t.Description, string(t.PaymentMethod), breakdown, t.PartnerID, t.CommissionCents,
	).Scan(&saleID)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}

	if customerID != nil {
		tag, err := tx.Exec(ctx,
			`UPDATE customers SET total_spent = total_spent + $2 WHERE id = $1`,
			*customerID, t.AmountCents,
		)
		if err != nil {
			return 0, fmt.Errorf("update customer spend: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return 0, ErrCustomerNotFound
		}
	}

	if t.PartnerID != nil && t.CommissionCents != nil {
		_, err = tx.Exec(ctx,
			`UPDATE partners
			 SET commission_earned = commission_earned + $2, total_sales_count = total_sales_count + 1
			 WHERE id = $1`,
			*t.PartnerID, *t.CommissionCents,
		)
		if err != nil {
			return 0, fmt.Errorf("update partner commission: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return saleID, nil
}

// CreateTransaction добавляет запись журнала вне продажи (например, расход).
func (r *PostgresRepository) CreateTransaction(ctx context.Context, t model.Transaction) (int64, error) {
	breakdown, err := marshalOptionalSlice(t.Breakdown)
	if err != nil {
		return 0, fmt.Errorf("marshal breakdown: %w", err)
	}

	var id int64
	err = r.pool.QueryRow(ctx,
		`INSERT INTO transactions (type, amount, description, payment_method, payment_breakdown, partner_id, commission)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		string(t.Type), t.AmountCents, t.Description, string(t.PaymentMethod), breakdown, t.PartnerID, t.CommissionCents,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create transaction: %w", err)
	}
	return id, nil
}

// ListTransactions возвращает журнал операций, свежие первыми.
func (r *PostgresRepository) ListTransactions(ctx context.Context) ([]model.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, created_at, type, amount, description, payment_method, payment_breakdown, partner_id, commission
		 FROM transactions ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var res []model.Transaction
	for rows.Next() {
		var t model.Transaction
		var txType, method string
		var breakdownRaw []byte
		if err := rows.Scan(&t.ID, &t.CreatedAt, &txType, &t.AmountCents, &t.Description, &method, &breakdownRaw, &t.PartnerID, &t.CommissionCents); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Type = model.TransactionType(txType)
		t.PaymentMethod = model.PaymentMethod(method)
		if len(breakdownRaw) > 0 {
			if err := json.Unmarshal(breakdownRaw, &t.Breakdown); err != nil {
				return nil, fmt.Errorf("unmarshal breakdown: %w", err)
			}
		}
		res = append(res, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreatePartner создаёт партнёра.
func (r *PostgresRepository) CreatePartner(ctx context.Context, p model.Partner) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO partners (name, email, phone, pix_key, status, referral_code)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		p.Name, p.Email, p.Phone, p.PixKey, p.Status, p.ReferralCode,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create partner: %w", err)
	}
	return id, nil
}

// ListPartners возвращает всех партнёров.
func (r *PostgresRepository) ListPartners(ctx context.Context) ([]model.Partner, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, email, phone, pix_key, commission_earned, total_sales_count, status, referral_code
		 FROM partners ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("select partners: %w", err)
	}
	defer rows.Close()

	var res []model.Partner
	for rows.Next() {
		var p model.Partner
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.PixKey, &p.CommissionEarnedCents, &p.TotalSalesCount, &p.Status, &p.ReferralCode); err != nil {
			return nil, fmt.Errorf("scan partner: %w", err)
		}
		res = append(res, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateSocialGoal создаёт социальную цель.
func (r *PostgresRepository) CreateSocialGoal(ctx context.Context, g model.SocialGoal) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO social_goals (title, description, target_value, current_value, is_active)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		g.Title, g.Description, g.TargetCents, g.CurrentCents, g.IsActive,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create social goal: %w", err)
	}
	return id, nil
}

// ListSocialGoals возвращает все социальные цели.
func (r *PostgresRepository) ListSocialGoals(ctx context.Context) ([]model.SocialGoal, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, description, target_value, current_value, is_active FROM social_goals ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("select social goals: %w", err)
	}
	defer rows.Close()

	var res []model.SocialGoal
	for rows.Next() {
		var g model.SocialGoal
		if err := rows.Scan(&g.ID, &g.Title, &g.Description, &g.TargetCents, &g.CurrentCents, &g.IsActive); err != nil {
			return nil, fmt.Errorf("scan social goal: %w", err)
		}
		res = append(res, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateNotifications сохраняет пакет уведомлений о подборе.
func (r *PostgresRepository) CreateNotifications(ctx context.Context, ns []model.Notification) error {
	if len(ns) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, n := range ns {
		_, err = tx.Exec(ctx,
			`INSERT INTO notifications (customer_id, product_id, phone, message, status)
			 VALUES ($1, $2, $3, $4, $5)`,
			n.CustomerID, n.ProductID, n.Phone, n.Message, string(model.NotificationStatusNew),
		)
		if err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetPendingNotifications возвращает неотправленные уведомления.
func (r *PostgresRepository) GetPendingNotifications(ctx context.Context, limit int) ([]model.Notification, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, customer_id, product_id, phone, message, status, created_at
		 FROM notifications
		 WHERE status = $1
		 ORDER BY created_at
		 LIMIT $2`,
		string(model.NotificationStatusNew), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select notifications: %w", err)
	}
	defer rows.Close()

	var res []model.Notification
	for rows.Next() {
		var n model.Notification
		var status string
		if err := rows.Scan(&n.ID, &n.CustomerID, &n.ProductID, &n.Phone, &n.Message, &status, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Status = model.NotificationStatus(status)
		res = append(res, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// MarkNotificationSent помечает уведомление отправленным.
func (r *PostgresRepository) MarkNotificationSent(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notifications SET status = $2 WHERE id = $1`,
		id, string(model.NotificationStatusSent),
	)
	if err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	return nil
}

// Restore целиком замещает состояние системы содержимым резервной копии.
func (r *PostgresRepository) Restore(ctx context.Context, b *model.Backup) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`TRUNCATE notifications, social_goals, partners, transactions, donations,
		 products, customers, donors, institution, users RESTART IDENTITY CASCADE`,
	)
	if err != nil {
		return fmt.Errorf("truncate state: %w", err)
	}

	if b.Institution != nil {
		_, err = tx.Exec(ctx,
			`INSERT INTO institution (id, name, cnpj, address, phone, email, bazar_name)
			 VALUES (1, $1, $2, $3, $4, $5, $6)`,
			b.Institution.Name, b.Institution.CNPJ, b.Institution.Address,
			b.Institution.Phone, b.Institution.Email, b.Institution.BazarName,
		)
		if err != nil {
			return fmt.Errorf("restore institution: %w", err)
		}
	}

	for _, u := range b.Users {
		_, err = tx.Exec(ctx,
			`INSERT INTO users (id, login, password_hash, name, role, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
			u.ID, u.Login, u.PasswordHash, u.Name, u.Role, u.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("restore user: %w", err)
		}
	}

	for _, d := range b.Donors {
		_, err = tx.Exec(ctx,
			`INSERT INTO donors (id, name, email, phone, total_donations) VALUES ($1, $2, $3, $4, $5)`,
			d.ID, d.Name, d.Email, d.Phone, d.TotalDonations,
		)
		if err != nil {
			return fmt.Errorf("restore donor: %w", err)
		}
	}

	for _, c := range b.Customers {
		sizes, mErr := marshalOptional(c.Sizes)
		if mErr != nil {
			return fmt.Errorf("marshal sizes: %w", mErr)
		}
		prefs, mErr := marshalOptional(c.Preferences)
		if mErr != nil {
			return fmt.Errorf("marshal preferences: %w", mErr)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO customers (id, name, email, phone, total_spent, sizes, preferences)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			c.ID, c.Name, c.Email, c.Phone, c.TotalSpentCents, sizes, prefs,
		)
		if err != nil {
			return fmt.Errorf("restore customer: %w", err)
		}
	}

	for _, p := range b.Products {
		_, err = tx.Exec(ctx,
			`INSERT INTO products (id, code, name, description, category, sub_category, price, stock,
			 condition, status, size, color, fabric, print, brand, gender, image_url, video_url, in_store, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
			p.ID, p.Code, p.Name, p.Description, string(p.Category), p.SubCategory, p.PriceCents, p.Stock,
			string(p.Condition), string(p.Status), p.Size, p.Color, p.Fabric, p.Print, p.Brand, p.Gender,
			p.ImageURL, p.VideoURL, p.InStore, p.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("restore product: %w", err)
		}
	}

	for _, d := range b.Donations {
		_, err = tx.Exec(ctx,
			`INSERT INTO donations (id, donor_id, received_at, status, items_description, estimated_value)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			d.ID, d.DonorID, d.ReceivedAt, string(d.Status), d.ItemsDescription, d.EstimatedValueCents,
		)
		if err != nil {
			return fmt.Errorf("restore donation: %w", err)
		}
	}

	for _, t := range b.Transactions {
		breakdown, mErr := marshalOptionalSlice(t.Breakdown)
		if mErr != nil {
			return fmt.Errorf("marshal breakdown: %w", mErr)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO transactions (id, created_at, type, amount, description, payment_method, payment_breakdown, partner_id, commission)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			t.ID, t.CreatedAt, string(t.Type), t.AmountCents, t.Description, string(t.PaymentMethod),
			breakdown, t.PartnerID, t.CommissionCents,
		)
		if err != nil {
			return fmt.Errorf("restore transaction: %w", err)
		}
	}

	for _, p := range b.Partners {
		_, err = tx.Exec(ctx,
			`INSERT INTO partners (id, name, email, phone, pix_key, commission_earned, total_sales_count, status, referral_code)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			p.ID, p.Name, p.Email, p.Phone, p.PixKey, p.CommissionEarnedCents, p.TotalSalesCount, p.Status, p.ReferralCode,
		)
		if err != nil {
			return fmt.Errorf("restore partner: %w", err)
		}
	}

	for _, g := range b.SocialGoals {
		_, err = tx.Exec(ctx,
			`INSERT INTO social_goals (id, title, description, target_value, current_value, is_active)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			g.ID, g.Title, g.Description, g.TargetCents, g.CurrentCents, g.IsActive,
		)
		if err != nil {
			return fmt.Errorf("restore social goal: %w", err)
		}
	}

	// Последовательности выравниваются по максимальным идентификаторам копии.
	for _, table := range []string{"users", "donors", "customers", "products", "donations", "transactions", "partners", "social_goals"} {
		_, err = tx.Exec(ctx, fmt.Sprintf(
			`SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 0) + 1, false)`,
			table, table,
		))
		if err != nil {
			return fmt.Errorf("reset sequence %s: %w", table, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// scanner объединяет pgx.Row и pgx.Rows для общих функций чтения.
type scanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row scanner) (model.Customer, error) {
	var c model.Customer
	var sizesRaw, prefsRaw []byte

	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.TotalSpentCents, &sizesRaw, &prefsRaw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c, err
		}
		return c, fmt.Errorf("scan customer: %w", err)
	}

	if len(sizesRaw) > 0 {
		c.Sizes = &model.SizeProfile{}
		if err := json.Unmarshal(sizesRaw, c.Sizes); err != nil {
			return c, fmt.Errorf("unmarshal sizes: %w", err)
		}
	}
	if len(prefsRaw) > 0 {
		c.Preferences = &model.Preferences{}
		if err := json.Unmarshal(prefsRaw, c.Preferences); err != nil {
			return c, fmt.Errorf("unmarshal preferences: %w", err)
		}
	}

	return c, nil
}

func scanProduct(row scanner) (model.Product, error) {
	var p model.Product
	var category, condition, status string

	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &category, &p.SubCategory,
		&p.PriceCents, &p.Stock, &condition, &status, &p.Size, &p.Color, &p.Fabric,
		&p.Print, &p.Brand, &p.Gender, &p.ImageURL, &p.VideoURL, &p.InStore, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("scan product: %w", err)
	}

	p.Category = model.Category(category)
	p.Condition = model.Condition(condition)
	p.Status = model.ProductStatus(status)

	return p, nil
}

// marshalOptional сериализует необязательную структуру в JSONB; nil остаётся NULL.
func marshalOptional(v any) ([]byte, error) {
	switch val := v.(type) {
	case *model.SizeProfile:
		if val == nil {
			return nil, nil
		}
	case *model.Preferences:
		if val == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

func marshalOptionalSlice(items []model.PaymentItem) ([]byte, error) {
	if len(items) == 0 {
		return nil, nil
	}
	return json.Marshal(items)
}
