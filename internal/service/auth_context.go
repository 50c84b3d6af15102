package service

// AuthContext 由认证中间件注入，所有修改类操作都需要传入
type AuthContext struct {
	Authenticated bool
	Username      string
}

// Anonymous 未登录的上下文
var Anonymous = AuthContext{}

func (a AuthContext) require() error {
	if !a.Authenticated {
		return ErrUnauthenticated
	}
	return nil
}
