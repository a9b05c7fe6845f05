// Package config 提供 sigrag 的配置管理功能。
//
// 支持从默认值、YAML 文件和环境变量加载配置，
// 按 默认值 → 文件 → 环境变量 的优先级合并并统一验证。
package config
