/*
Package main 提供 magicimage 命令行入口。

# 概述

cmd/magicimage 把生成编排器、持久化存储与传输客户端组装成一个命令行工具。
启动时加载 YAML / .env / 环境变量配置，打开配置的存储后端，
并执行一次 API 地址迁移。

# 子命令

  - key：保存、查看、删除 API Key，或从分享链接导入
  - models：管理自定义模型与上次选择的模型
  - history：查看、删除、清空生成历史
  - generate：执行一次文生图或图生图，流式输出文本，内联图片写入文件
  - version：版本信息

构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置。
*/
package main
