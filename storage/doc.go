/*
Package storage 是本地持久化层：凭证、生成历史、自定义模型与上次选择的模型。

Store 把四类记录编码为 JSON 存到一个 KV 后端中，键名沿用
ai-drawing-* 系列。后端可选：

  - SQLKV：GORM + sqlite（默认）/ postgres / mysql，单表 kv_entries
  - RedisKV：go-redis，键永不过期
  - MemoryKV：进程内，测试用
  - NopKV：没有持久化能力时使用，读取为空、写入无效果

历史记录头插（最新在前）；自定义模型按插入顺序保存。
*/
package storage
