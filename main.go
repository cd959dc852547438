// @title LearnHub 测验服务 API
// @version 1.0
// @description 测验出题、学生作答、评分与复习。

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"learnhub_backend/internal/app"
	"learnhub_backend/internal/config"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/util"
)

func main() {
	// 命令行参数
	configDir := flag.String("config", "configs", "配置文件目录")
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	migrate := flag.Bool("migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
	issueToken := flag.String("issue-token", "", "签发本地调试用的 JWT，格式 userId:role，输出后退出")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *issueToken != "" {
		token, err := tokenFor(*issueToken, cfg)
		if err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Println(token)
		return
	}

	// 设置迁移标志
	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg)

	// 迁移完成后直接退出
	if cfg.MigrateOnly {
		log.Println("数据库迁移完成，退出程序")
		return
	}

	application.Run()
}

func tokenFor(arg string, cfg *config.Config) (string, error) {
	userID, role, ok := strings.Cut(arg, ":")
	if !ok || strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("expected userId:role, got %q", arg)
	}
	p := model.Principal{UserID: strings.TrimSpace(userID), Role: model.UserRole(strings.TrimSpace(role))}
	if !p.Role.Valid() {
		return "", fmt.Errorf("unknown role %q", role)
	}
	return util.GenerateJWT(p, cfg.JWT.Secret, cfg.JWT.ExpireTime)
}
