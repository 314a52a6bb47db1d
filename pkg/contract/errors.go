package contract

import "errors"

// 最小错误分类（用于上层策略判定与退出码）。
var (
	// ErrBatchFailure: 摄入阶段出现非预期错误，整批作废，不产出报告。
	ErrBatchFailure = errors.New("batch failure")
	// ErrInvariantViolation: 领域不变量违例（通用哨兵）。
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrNotInvestigated: 在成功调查之前请求报告。
	ErrNotInvestigated = errors.New("not investigated")
	// ErrEmptyInput: 输入源没有任何行。
	ErrEmptyInput = errors.New("empty input")
	// ErrSkipped: 组件按配置跳过该输入（如扩展名不在允许列表中），不计入运行结果。
	ErrSkipped = errors.New("input skipped")
	// ErrInvalidInput: 输入不满足组件前置条件（如行超长）。
	ErrInvalidInput = errors.New("invalid input")
	// ErrPathInvalid: 目标标识映射为无效/越界路径（例如绝对路径或 '..' 逃逸）。
	ErrPathInvalid = errors.New("path invalid")
)
