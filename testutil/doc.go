/*
Package testutil 提供测试共享的上下文与异步等待工具。

# 子包

  - testutil/mocks: MockTransport，可脚本化的传输层（固定图片结果、
    错误注入、自动或手动触发的流式回调），并记录每次调用
  - testutil/fixtures: 最小 PNG/JPEG 样例与对应的 data URI

# 使用示例

	ctx := testutil.TestContext(t)
	tr := mocks.NewMockTransport().WithImages(transport.ImageItem{URL: "https://x/a.png"})
*/
package testutil
