package repository

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/foundry-qc/qc-module/internal/config"
	"github.com/bigkaa/foundry-qc/qc-module/internal/database"
	"github.com/bigkaa/foundry-qc/qc-module/internal/domain/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// setupTestDB запускает PostgreSQL контейнер, применяет миграции.
// Возвращает pgxpool.Pool и функцию очистки.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("qc_test"),
		postgres.WithUsername("qc"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	// Настраиваем env для config.Load()
	os.Setenv("QC_DB_HOST", host)
	os.Setenv("QC_DB_PORT", port.Port())
	os.Setenv("QC_DB_NAME", "qc_test")
	os.Setenv("QC_DB_USER", "qc")
	os.Setenv("QC_DB_PASSWORD", "test-password")
	os.Setenv("QC_DB_SSL_MODE", "disable")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// Применяем миграции
	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}

	// Подключаемся
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	return pool
}

// newTestShift создаёт активную смену для тестов записей контроля.
func newTestShift(t *testing.T, ctx context.Context, repo ShiftRepository, number int) *model.Shift {
	t.Helper()

	s := &model.Shift{
		Date:        time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Number:      number,
		Supervisor:  "Иванова",
		Controllers: []string{"Петрова", "Сидорова"},
		Status:      model.ShiftStatusActive,
		StartedAt:   time.Now().UTC(),
	}
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Создание смены: %v", err)
	}
	return s
}

// --- Тесты ControllerRepository ---

func TestControllerCRUD(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewControllerRepository(pool)

	c := &model.Controller{Name: "Петрова А.И.", IsActive: true}

	// Create
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	if c.ID == 0 {
		t.Error("ID не установлен после Create")
	}
	if c.CreatedAt.IsZero() {
		t.Error("CreatedAt не установлен")
	}

	// Дубликат имени
	dup := &model.Controller{Name: "Петрова А.И.", IsActive: true}
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("Create() дубликат: ожидали ErrConflict, получили: %v", err)
	}

	// GetByName
	got, err := repo.GetByName(ctx, "Петрова А.И.")
	if err != nil {
		t.Fatalf("GetByName() ошибка: %v", err)
	}
	if got.ID != c.ID {
		t.Errorf("ID = %d, хотели %d", got.ID, c.ID)
	}

	// SetActive (мягкое удаление)
	if err := repo.SetActive(ctx, c.ID, false); err != nil {
		t.Fatalf("SetActive() ошибка: %v", err)
	}
	active, err := repo.List(ctx, true)
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("List(activeOnly) вернул %d записей, хотели 0", len(active))
	}
	all, _ := repo.List(ctx, false)
	if len(all) != 1 {
		t.Errorf("List() вернул %d записей, хотели 1", len(all))
	}

	// CountActiveByNames
	if err := repo.SetActive(ctx, c.ID, true); err != nil {
		t.Fatalf("SetActive() восстановление: %v", err)
	}
	count, err := repo.CountActiveByNames(ctx, []string{"Петрова А.И.", "Нет Такой"})
	if err != nil {
		t.Fatalf("CountActiveByNames() ошибка: %v", err)
	}
	if count != 1 {
		t.Errorf("CountActiveByNames() = %d, хотели 1", count)
	}
}

// --- Тесты ShiftRepository ---

func TestShiftLifecycle(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewShiftRepository(pool)

	s := newTestShift(t, ctx, repo, 1)

	// Повторное открытие той же смены — конфликт частичного индекса
	dup := &model.Shift{
		Date:       s.Date,
		Number:     1,
		Supervisor: "Контролеры",
		Status:     model.ShiftStatusActive,
		StartedAt:  time.Now().UTC(),
	}
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("Create() дубликат активной смены: ожидали ErrConflict, получили: %v", err)
	}

	// FindActiveByKey
	found, err := repo.FindActiveByKey(ctx, s.Date, 1)
	if err != nil {
		t.Fatalf("FindActiveByKey() ошибка: %v", err)
	}
	if found.ID != s.ID {
		t.Errorf("ID = %d, хотели %d", found.ID, s.ID)
	}

	// GetActive
	active, err := repo.GetActive(ctx, nil)
	if err != nil {
		t.Fatalf("GetActive() ошибка: %v", err)
	}
	if active.ID != s.ID {
		t.Errorf("GetActive() ID = %d, хотели %d", active.ID, s.ID)
	}

	// Close
	endedAt := time.Now().UTC()
	if err := repo.Close(ctx, s.ID, endedAt); err != nil {
		t.Fatalf("Close() ошибка: %v", err)
	}

	// Повторное закрытие — смена уже не активна
	if err := repo.Close(ctx, s.ID, endedAt); !errors.Is(err, ErrNotFound) {
		t.Errorf("Повторный Close(): ожидали ErrNotFound, получили: %v", err)
	}

	// После закрытия смену с той же парой (дата, номер) можно открыть снова
	again := &model.Shift{
		Date:       s.Date,
		Number:     1,
		Supervisor: "Контролеры",
		Status:     model.ShiftStatusActive,
		StartedAt:  time.Now().UTC(),
	}
	if err := repo.Create(ctx, again); err != nil {
		t.Fatalf("Create() после закрытия: %v", err)
	}

	// ListByDateRange по статусу
	closed := model.ShiftStatusClosed
	list, err := repo.ListByDateRange(ctx, s.Date, s.Date, &closed)
	if err != nil {
		t.Fatalf("ListByDateRange() ошибка: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("ListByDateRange(closed) вернул %d записей, хотели 1", len(list))
	}
	if list[0].EndedAt == nil {
		t.Error("EndedAt не установлен у закрытой смены")
	}
}

// --- Тесты ControlRepository ---

func TestControlRecordWithDefects(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	shiftRepo := NewShiftRepository(pool)
	ctrlRepo := NewControlRepository(pool)
	defectRepo := NewDefectRepository(pool)

	shift := newTestShift(t, ctx, shiftRepo, 1)

	// Справочник дефектов заполнен миграцией 0002
	groups, err := defectRepo.ListGrouped(ctx, true)
	if err != nil {
		t.Fatalf("ListGrouped() ошибка: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("ListGrouped() вернул %d категорий, хотели 3", len(groups))
	}
	typeA := groups[0].Types[0].ID
	typeB := groups[1].Types[0].ID

	rec := &model.ControlRecord{
		ShiftID:       shift.ID,
		CardNumber:    "123456",
		TotalCast:     200,
		TotalAccepted: 185,
		Controller:    "Петрова",
	}
	if err := ctrlRepo.Create(ctx, rec); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	if rec.ID == 0 {
		t.Error("ID не установлен после Create")
	}

	// Дефекты: нулевые количества не сохраняются
	defects := map[int64]int{typeA: 10, typeB: 5, groups[2].Types[0].ID: 0}
	if err := ctrlRepo.AddDefects(ctx, rec.ID, defects); err != nil {
		t.Fatalf("AddDefects() ошибка: %v", err)
	}

	saved, err := ctrlRepo.DefectsByRecord(ctx, rec.ID)
	if err != nil {
		t.Fatalf("DefectsByRecord() ошибка: %v", err)
	}
	if len(saved) != 2 {
		t.Errorf("DefectsByRecord() вернул %d строк, хотели 2", len(saved))
	}

	// Несуществующий тип дефекта — ошибка внешнего ключа
	if err := ctrlRepo.AddDefects(ctx, rec.ID, map[int64]int{999999: 1}); !errors.Is(err, ErrForeignKey) {
		t.Errorf("AddDefects() с неизвестным типом: ожидали ErrForeignKey, получили: %v", err)
	}

	// Totals
	totals, err := ctrlRepo.Totals(ctx, shift.ID)
	if err != nil {
		t.Fatalf("Totals() ошибка: %v", err)
	}
	if totals.Records != 1 || totals.TotalCast != 200 || totals.TotalAccepted != 185 {
		t.Errorf("Totals() = %+v", totals)
	}
	if totals.TotalDefects != 15 {
		t.Errorf("TotalDefects = %d, хотели 15", totals.TotalDefects)
	}

	// DefectTotals отсортированы по убыванию количества
	dt, err := ctrlRepo.DefectTotals(ctx, shift.ID)
	if err != nil {
		t.Fatalf("DefectTotals() ошибка: %v", err)
	}
	if len(dt) != 2 {
		t.Fatalf("DefectTotals() вернул %d строк, хотели 2", len(dt))
	}
	if dt[0].Total != 10 || dt[1].Total != 5 {
		t.Errorf("DefectTotals() порядок: %+v", dt)
	}
}

func TestExistsCardScopes(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	shiftRepo := NewShiftRepository(pool)
	ctrlRepo := NewControlRepository(pool)

	s1 := newTestShift(t, ctx, shiftRepo, 1)
	s2 := newTestShift(t, ctx, shiftRepo, 2)

	rec := &model.ControlRecord{
		ShiftID:       s1.ID,
		CardNumber:    "654321",
		TotalCast:     50,
		TotalAccepted: 50,
		Controller:    "Сидорова",
	}
	if err := ctrlRepo.Create(ctx, rec); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	// Внутри своей смены — найдена
	exists, err := ctrlRepo.ExistsCard(ctx, "654321", &s1.ID)
	if err != nil {
		t.Fatalf("ExistsCard() ошибка: %v", err)
	}
	if !exists {
		t.Error("ExistsCard() в своей смене = false, хотели true")
	}

	// В другой смене — нет
	exists, _ = ctrlRepo.ExistsCard(ctx, "654321", &s2.ID)
	if exists {
		t.Error("ExistsCard() в другой смене = true, хотели false")
	}

	// Глобально — найдена
	exists, _ = ctrlRepo.ExistsCard(ctx, "654321", nil)
	if !exists {
		t.Error("ExistsCard() глобально = false, хотели true")
	}
}

func TestShiftDeleteCascades(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	shiftRepo := NewShiftRepository(pool)
	ctrlRepo := NewControlRepository(pool)
	defectRepo := NewDefectRepository(pool)

	shift := newTestShift(t, ctx, shiftRepo, 2)

	groups, err := defectRepo.ListGrouped(ctx, true)
	if err != nil {
		t.Fatalf("ListGrouped() ошибка: %v", err)
	}
	typeID := groups[0].Types[0].ID

	rec := &model.ControlRecord{
		ShiftID:       shift.ID,
		CardNumber:    "111222",
		TotalCast:     30,
		TotalAccepted: 25,
		Controller:    "Петрова",
	}
	if err := ctrlRepo.Create(ctx, rec); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	if err := ctrlRepo.AddDefects(ctx, rec.ID, map[int64]int{typeID: 5}); err != nil {
		t.Fatalf("AddDefects() ошибка: %v", err)
	}

	// Удаление смены удаляет записи и дефекты каскадно
	if err := shiftRepo.Delete(ctx, shift.ID); err != nil {
		t.Fatalf("Delete() ошибка: %v", err)
	}

	recs, err := ctrlRepo.ListByShift(ctx, shift.ID)
	if err != nil {
		t.Fatalf("ListByShift() ошибка: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("ListByShift() после удаления вернул %d записей, хотели 0", len(recs))
	}
	left, err := ctrlRepo.CountDefectEntries(ctx)
	if err != nil {
		t.Fatalf("CountDefectEntries() ошибка: %v", err)
	}
	if left != 0 {
		t.Errorf("После каскадного удаления осталось %d дефектов, хотели 0", left)
	}
}

// --- Тесты DefectRepository ---

func TestDefectReference(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewDefectRepository(pool)

	groups, err := repo.ListGrouped(ctx, true)
	if err != nil {
		t.Fatalf("ListGrouped() ошибка: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("ListGrouped() вернул %d категорий, хотели 3", len(groups))
	}
	for _, g := range groups {
		if len(g.Types) == 0 {
			t.Errorf("Категория %q без типов дефектов", g.Category.Name)
		}
	}

	// ExistingTypeIDs
	ids := []int64{groups[0].Types[0].ID, 999999}
	existing, err := repo.ExistingTypeIDs(ctx, ids)
	if err != nil {
		t.Fatalf("ExistingTypeIDs() ошибка: %v", err)
	}
	if !existing[ids[0]] || existing[999999] {
		t.Errorf("ExistingTypeIDs() = %v", existing)
	}

	// Отключённый тип не попадает в активный справочник
	typeID := groups[0].Types[0].ID
	if err := repo.SetTypeActive(ctx, typeID, false); err != nil {
		t.Fatalf("SetTypeActive() ошибка: %v", err)
	}
	existing2, _ := repo.ExistingTypeIDs(ctx, []int64{typeID})
	if existing2[typeID] {
		t.Error("Отключённый тип дефекта считается активным")
	}

	// Новая категория и тип
	cat := &model.DefectCategory{Name: "Прочее", SortOrder: 10}
	if err := repo.CreateCategory(ctx, cat); err != nil {
		t.Fatalf("CreateCategory() ошибка: %v", err)
	}
	typ := &model.DefectType{CategoryID: cat.ID, Name: "Иное", IsActive: true, SortOrder: 1}
	if err := repo.CreateType(ctx, typ); err != nil {
		t.Fatalf("CreateType() ошибка: %v", err)
	}
	if typ.ID == 0 {
		t.Error("ID не установлен после CreateType")
	}

	// Тип с несуществующей категорией
	bad := &model.DefectType{CategoryID: 999999, Name: "Ошибка", IsActive: true}
	if err := repo.CreateType(ctx, bad); !errors.Is(err, ErrForeignKey) {
		t.Errorf("CreateType() с неизвестной категорией: ожидали ErrForeignKey, получили: %v", err)
	}
}

// --- Тесты TxRunner ---

func TestTxRunnerRollback(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	shiftRepo := NewShiftRepository(pool)
	runner := NewTxRunner(pool)

	shift := newTestShift(t, ctx, shiftRepo, 1)

	// Ошибка внутри транзакции откатывает запись контроля
	boom := errors.New("boom")
	err := runner.RunInTx(ctx, func(tx pgx.Tx) error {
		ctrl := NewControlRepository(tx)
		rec := &model.ControlRecord{
			ShiftID:       shift.ID,
			CardNumber:    "777777",
			TotalCast:     10,
			TotalAccepted: 10,
			Controller:    "Петрова",
		}
		if err := ctrl.Create(ctx, rec); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("RunInTx() вернул %v, хотели boom", err)
	}

	ctrlRepo := NewControlRepository(pool)
	exists, err := ctrlRepo.ExistsCard(ctx, "777777", nil)
	if err != nil {
		t.Fatalf("ExistsCard() ошибка: %v", err)
	}
	if exists {
		t.Error("Запись сохранилась несмотря на откат транзакции")
	}
}
