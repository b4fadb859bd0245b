package selection

import (
	"fmt"
	"strings"

	"deployboard/domain/core/entities"
)

// Field is a single read-only row of the detail panel.
type Field struct {
	Label       string `json:"label"`
	Value       string `json:"value"`
	Placeholder string `json:"placeholder,omitempty"`
	Unit        string `json:"unit,omitempty"`
}

// Group is a titled block of fields.
type Group struct {
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}

// Detail is the configuration view for a selected module. Values are
// display defaults and are never validated or stored.
type Detail struct {
	Module entities.ModuleDefinition `json:"module"`
	Groups []Group                   `json:"groups"`
}

// Describe builds the detail view for a module.
func Describe(m entities.ModuleDefinition) Detail {
	image := fmt.Sprintf("%s:%s", m.Name, m.Version)
	d := Detail{
		Module: m,
		Groups: []Group{
			{Title: "基本信息", Fields: []Field{
				{Label: "容器名称", Value: m.Name},
				{Label: "版本号", Value: m.Version},
				{Label: "配置数量", Value: "1"},
			}},
			{Title: "构建配置", Fields: []Field{
				{Label: "镜像名称", Value: image},
				{Label: "包地址", Placeholder: "输入包地址"},
				{Label: "Dockerfile", Value: "file://docker/Dockerfile", Placeholder: "Dockerfile 路径"},
			}},
			{Title: "部署配置", Fields: []Field{
				{Label: "服务地址", Value: "aliphe-registry:5000/" + image},
				{Label: "服务端口", Value: "6379"},
				{Label: "日志路径", Value: "/var/log"},
				{Label: "健康检查", Placeholder: "健康检查路径"},
				{Label: "检查端口", Value: "/"},
			}},
		},
	}

	if strings.Contains(strings.ToLower(m.Name), "redis") {
		d.Groups = append(d.Groups, Group{Title: "Redis 配置", Fields: []Field{
			{Label: "端口", Value: "6379"},
			{Label: "密码"},
			{Label: "最大内存", Value: "1", Unit: "GB"},
			{Label: "保存间隔", Value: "300"},
			{Label: "修改次数", Value: "100"},
			{Label: "数据目录", Value: "/data"},
		}})
	}
	return d
}
