package version

// Commit：构建时通过 -ldflags 注入的提交哈希，缺省为 dev
var Commit = "dev"
