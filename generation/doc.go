/*
包 generation 实现一次图片生成的完整编排。

# 流水线

	分类 (Classifier) → 构建 (Build) → 分发 (transport.Adapter)
	  → 归一化 (Normalize) → 持久化 (Persistence.AddHistory)

# 核心类型

  - Classifier：把 (模型标识, 类型提示) 解析为协议变体，
    优先级为自定义模型记录、显式提示、启用的规则、默认变体。
  - Intent / SourceImages：用户意图与经过校验的参考图集合。
  - Orchestrator：单飞的状态机，状态为
    idle → validating → dispatching → (streaming) → success | failed。

# 并发

同一时刻只允许一个生成进行，重复调用返回 BUSY。每次生成分配一个会话号，
Reset 之后旧会话的流式回调全部被丢弃。观察者可以使用 Snapshot、Wait
或 Subscribe。
*/
package generation
