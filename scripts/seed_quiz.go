// 写入一份示例测验，便于本地联调学生端接口
//
// 仅在使用 mysql / postgres 时有意义，内存存储随进程退出而丢失。
//
// 用法: go run scripts/seed_quiz.go [-config configs] [-teacher demo-teacher]

package main

import (
	"context"
	"flag"
	"log"

	"learnhub_backend/internal/config"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/policy"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/database"
	"learnhub_backend/pkg/logger"
)

func main() {
	configDir := flag.String("config", "configs", "配置文件目录")
	teacherID := flag.String("teacher", "demo-teacher", "示例测验的归属教师")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}
	if cfg.Database.Driver == util.DriverMemory {
		log.Fatal("当前为内存存储，请配置 mysql 或 postgres 后再执行")
	}

	logger.InitLogger(cfg)

	db, err := database.InitDB(&cfg.Database, false)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	// 写入后清掉学生端列表缓存
	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		log.Printf("Redis 不可用，跳过缓存失效: %v", err)
		rdb = nil
	}
	cache := repository.NewQuizListCache(rdb, cfg.Quiz.ListCacheTTL())

	quizzes := service.NewQuizService(repository.NewQuizRepository(db), cache, policy.NewOwnerPolicy())
	points := 2
	quiz, err := quizzes.CreateQuiz(context.Background(),
		model.Principal{UserID: *teacherID, Role: model.Teacher},
		service.CreateQuizReq{
			Title:       "示例测验：基础知识",
			Description: "本地联调用",
			IsActive:    true,
			Questions: []service.QuestionReq{
				{Type: model.MultipleChoice, Question: "2 + 2 = ?", Options: []string{"3", "4", "5"}, CorrectAnswer: "4", Points: &points},
				{Type: model.TrueFalse, Question: "Go 是静态类型语言", CorrectAnswer: "True"},
				{Type: model.ShortAnswer, Question: "法国的首都是？", CorrectAnswer: "Paris", Explanation: "区分大小写"},
			},
		})
	if err != nil {
		log.Fatalf("创建示例测验失败: %v", err)
	}

	log.Printf("完成！测验 %s，共 %d 题，总分 %d", quiz.ID, len(quiz.Questions), quiz.TotalPoints())
}
