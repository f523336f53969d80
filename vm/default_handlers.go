package vm

// RegisterDefaultHandlers 注册运行时内置程序
// 业务程序（例如金库）由调用方另行注册
func RegisterDefaultHandlers(reg *HandlerRegistry) error {
	handlers := []TxHandler{
		&SystemProgram{}, // 创建账户、转账
	}
	for _, h := range handlers {
		if err := reg.Register(h); err != nil {
			return err
		}
	}
	return nil
}
