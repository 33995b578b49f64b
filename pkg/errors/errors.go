package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrCrossAcademy 访问了其他学院的数据
var ErrCrossAcademy = errors.New("无权访问其他学院的数据")
