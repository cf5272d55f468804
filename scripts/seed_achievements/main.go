// 写入成就目录：按 game 配置生成里程碑成就，另可从 YAML 文件追加自定义成就
//
// 重复执行是安全的，已存在的 (type, name) 只更新描述。
//
// 用法: go run ./scripts/seed_achievements -extra configs/achievements.yaml

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"sign_learn_backend/internal/config"
	"sign_learn_backend/internal/model"
	"sign_learn_backend/internal/repository"
	"sign_learn_backend/internal/service"
	"sign_learn_backend/pkg/database"
	"sign_learn_backend/pkg/logger"

	"gopkg.in/yaml.v3"
)

type extraAchievement struct {
	Track   string `yaml:"track"`
	Name    string `yaml:"name"`
	Content string `yaml:"content"`
}

func loadExtras(path string, now time.Time) ([]model.Achievement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries []extraAchievement
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	out := make([]model.Achievement, 0, len(entries))
	for _, e := range entries {
		track, ok := model.ParseTrack(e.Track)
		if !ok || e.Name == "" {
			log.Printf("跳过无效条目: %+v", e)
			continue
		}
		out = append(out, model.Achievement{Type: bool(track), Name: e.Name, Content: e.Content, Date: now})
	}
	return out, nil
}

func main() {
	configDir := flag.String("config", "configs", "配置文件目录")
	extra := flag.String("extra", "", "自定义成就 YAML 文件")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	logger.InitLogger(cfg)

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == "debug")
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	now := time.Now()
	achievements := service.MilestoneCatalog(cfg.Game, now)
	if *extra != "" {
		extras, err := loadExtras(*extra, now)
		if err != nil {
			log.Fatalf("解析自定义成就失败: %v", err)
		}
		achievements = append(achievements, extras...)
	}

	repo := repository.NewAchievementRepository(db)
	ctx := context.Background()
	created := 0
	for i := range achievements {
		isNew, err := repo.Upsert(ctx, &achievements[i])
		if err != nil {
			log.Fatalf("写入成就 %q 失败: %v", achievements[i].Name, err)
		}
		if isNew {
			created++
		}
	}
	log.Printf("完成！共 %d 条，新增 %d 条", len(achievements), created)
}
