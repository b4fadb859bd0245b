package catalog

import "deployboard/domain/core/entities"

func defaultCategories() []entities.Category {
	return []entities.Category{
		{ID: "open-source", Name: "开源组件", Icon: "code", Items: []entities.ModuleDefinition{
			{ID: "rabbitmq", Name: "RabbitMQ", Icon: "message", Version: "3.9"},
			{ID: "kafka", Name: "Kafka", Icon: "message", Version: "2.8"},
		}},
		{ID: "database", Name: "数据存储", Icon: "database", Items: []entities.ModuleDefinition{
			{ID: "mysql", Name: "MySQL", Icon: "database", Version: "8.0"},
			{ID: "postgres", Name: "Postgres", Icon: "database", Version: "8.0"},
			{ID: "clickhouse", Name: "ClickHouse", Icon: "database", Version: "8.0"},
			{ID: "elasticsearch", Name: "ElasticSearch", Icon: "database", Version: "8.0"},
			{ID: "redis", Name: "Redis", Icon: "database", Version: "6.2"},
			{ID: "mongodb", Name: "MongoDB", Icon: "database", Version: "5.0"},
		}},
		{ID: "messaging", Name: "消息中间件", Icon: "message", Items: []entities.ModuleDefinition{
			{ID: "rabbitmq-msg", Name: "RabbitMQ", Icon: "message", Version: "3.9"},
			{ID: "kafka-msg", Name: "Kafka", Icon: "message", Version: "2.8"},
		}},
		{ID: "base-component", Name: "基础组件", Icon: "box"},
		{ID: "base-runtime", Name: "基础运行时", Icon: "environment"},
		{ID: "container-runtime", Name: "容器运行时", Icon: "environment", Items: []entities.ModuleDefinition{
			{ID: "docker", Name: "Docker", Icon: "environment", Version: "20.10"},
			{ID: "containerd", Name: "Containerd", Icon: "environment", Version: "1.5"},
		}},
	}
}

var defaultColors = map[string]string{
	"open-source":       "#F0FFF4",
	"database":          "#EFF6FF",
	"messaging":         "#FEFCE8",
	"base-component":    "#FFF7ED",
	"base-runtime":      "#FAF5FF",
	"container-runtime": "#EEF2FF",
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(defaultCategories(), defaultColors)
	if err != nil {
		panic(err)
	}
	return c
}
