/*
Package config 提供统一的配置加载与校验。

配置来源按优先级合并：默认值 → YAML 文件 → 环境变量（前缀 MAGICIMAGE_，
通过 env 结构体标签映射）。可选的 .env 文件只补充尚未设置的环境变量。

API 地址由部署固定（FixedAPIURL），加载时总是覆盖为该值，用户只能
配置 bearer key（存储在持久化存储中，而不是配置文件里）。
*/
package config
