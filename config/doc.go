// 包 config 提供 LexRAG 的统一配置加载：默认值、YAML 文件与
// 环境变量三层叠加，环境变量前缀为 LEXRAG。各子系统在启动时
// 从这里的 Config 派生自己的配置结构。
package config
