// Package validate 注册请求参数的自定义校验标签
package validate

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"ams-server/internal/schedule"
)

// Register 在 gin 的绑定引擎上注册自定义标签：
//
//	hhmm    HH:MM 24 小时制时刻
//	weekday 英文星期全称（大小写不敏感）
//	isodate YYYY-MM-DD 日期
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("gin 绑定引擎不是 validator/v10")
	}
	return RegisterOn(v)
}

// RegisterOn 在指定的校验器上注册自定义标签
func RegisterOn(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"hhmm":    isTimeOfDay,
		"weekday": isWeekday,
		"isodate": isDate,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("注册校验标签 %s 失败: %w", tag, err)
		}
	}
	return nil
}

func isTimeOfDay(fl validator.FieldLevel) bool {
	_, err := schedule.ParseTimeOfDay(fl.Field().String())
	return err == nil
}

func isWeekday(fl validator.FieldLevel) bool {
	_, err := schedule.ParseWeekday(fl.Field().String())
	return err == nil
}

func isDate(fl validator.FieldLevel) bool {
	_, err := schedule.ParseDate(fl.Field().String())
	return err == nil
}
