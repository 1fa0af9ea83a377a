package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed *.sql
var embedMigrations embed.FS

// Up 把表结构迁移到最新版本
func Up(ctx context.Context, pgurl string) error {
	migrationDB, err := sql.Open("pgx", pgurl)
	if err != nil {
		return fmt.Errorf("打开迁移连接失败: %w", err)
	}
	defer migrationDB.Close()

	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("设置迁移方言失败: %w", err)
	}

	if err := goose.UpContext(ctx, migrationDB, "."); err != nil {
		return fmt.Errorf("执行迁移失败: %w", err)
	}

	zap.L().Info("Migrations applied successfully")

	return nil
}

// Version 返回数据库当前的迁移版本
func Version(ctx context.Context, pgurl string) (int64, error) {
	migrationDB, err := sql.Open("pgx", pgurl)
	if err != nil {
		return 0, fmt.Errorf("打开迁移连接失败: %w", err)
	}
	defer migrationDB.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return 0, fmt.Errorf("设置迁移方言失败: %w", err)
	}

	return goose.GetDBVersionContext(ctx, migrationDB)
}
